package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	defaultUsageURL = "https://chatgpt.com/backend-api/wham/usage"
	userAgent       = "agent-switcher"
	maxUsageBody    = 2 * 1024 * 1024
	snippetLimit    = 200
)

// fetchUsage performs the single usage GET for one account.
func fetchUsage(ctx context.Context, client *http.Client, usageURL, accessToken, accountID string) (*Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, usageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if accountID != "" {
		req.Header.Set("ChatGPT-Account-Id", accountID)
	}

	res, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &RemoteError{Err: fmt.Errorf("timed out: %w", ctxErr)}
		}
		return nil, &RemoteError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxUsageBody))
	if err != nil {
		return nil, &RemoteError{Status: res.StatusCode, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &RemoteError{Status: res.StatusCode, Snippet: snippet(body)}
	}
	return normalizeUsage(body)
}

// snippet trims a response body for error messages.
func snippet(body []byte) string {
	msg := strings.Join(strings.Fields(string(body)), " ")
	if len(msg) <= snippetLimit {
		return msg
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "…"
}

func normalizeUsage(body []byte) (*Usage, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &RemoteError{Snippet: snippet(body), Err: fmt.Errorf("parse usage response: %w", err)}
	}

	out := &Usage{}
	out.PlanType, _ = payload["plan_type"].(string)
	out.Email, _ = payload["email"].(string)
	out.RateLimit = normalizeRateLimit(payload["rate_limit"])
	out.CodeReviewRateLimit = normalizeRateLimit(payload["code_review_rate_limit"])

	if node, ok := payload["credits"].(map[string]any); ok {
		credits := &Credits{}
		credits.Unlimited, _ = node["unlimited"].(bool)
		credits.HasCredits, _ = node["has_credits"].(bool)
		if raw, exists := node["balance"]; exists && raw != nil {
			v := toFloat(raw)
			credits.Balance = &v
		}
		out.Credits = credits
	}
	return out, nil
}

func normalizeRateLimit(raw any) *RateLimit {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := &RateLimit{
		Allowed:         optionalBool(node["allowed"]),
		LimitReached:    optionalBool(node["limit_reached"]),
		PrimaryWindow:   normalizeWindow(node["primary_window"]),
		SecondaryWindow: normalizeWindow(node["secondary_window"]),
	}
	return out
}

func normalizeWindow(raw any) *UsageWindow {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return &UsageWindow{
		UsedPercent:        clampPercent(toFloat(node["used_percent"])),
		ResetAfterSeconds:  optionalInt(node["reset_after_seconds"]),
		LimitWindowSeconds: optionalInt(node["limit_window_seconds"]),
	}
}

func optionalBool(raw any) *bool {
	v, ok := raw.(bool)
	if !ok {
		return nil
	}
	return &v
}

func optionalInt(raw any) *int64 {
	if raw == nil {
		return nil
	}
	v := toInt64(raw)
	return &v
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
