package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

const usageBody = `{"plan_type":"plus","email":"a@b.c","credits":{"has_credits":true,"balance":"12.5"},"rate_limit":{"allowed":true,"primary_window":{"used_percent":150,"limit_window_seconds":18000,"reset_after_seconds":60}}}`

func writeTokenAuth(t *testing.T, env *testEnv, account, accessToken, accountID string) {
	t.Helper()
	idToken := makeJWT(t, map[string]any{"chatgpt_account_id": accountID})
	env.writeHostAuth(t, account, fmt.Sprintf(`{"auth_mode":"chatgpt","tokens":{"access_token":%q,"id_token":%q}}`, accessToken, idToken))
}

func TestFetchAllMixesSuccessTimeoutAndUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		if r.Header.Get("ChatGPT-Account-Id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(usageBody))
	}))
	defer server.Close()

	env := newTestEnv(t)
	env.svc.Settings().UsageURL = server.URL
	writeTokenAuth(t, env, "a", "fast-a", "acct-a")
	writeTokenAuth(t, env, "b", "slow", "acct-b")
	writeTokenAuth(t, env, "c", "fast-c", "acct-c")
	env.writeHostAuth(t, "key", `{"auth_mode":"apikey","OPENAI_API_KEY":"sk-test"}`)

	accounts := []string{"a", "b", "c", "key", "missing"}
	start := time.Now()
	results := env.svc.FetchAll(context.Background(), accounts, 200*time.Millisecond, 2)
	elapsed := time.Since(start)

	if elapsed > 3*time.Second {
		t.Fatalf("batch took %v; one slow account should not stall it", elapsed)
	}
	if len(results) != len(accounts) {
		t.Fatalf("expected %d results, got %d", len(accounts), len(results))
	}
	for i, r := range results {
		if r.Account != accounts[i] {
			t.Fatalf("result %d is for %q, want %q", i, r.Account, accounts[i])
		}
	}
	if !results[0].OK || !results[2].OK {
		t.Fatalf("expected fast accounts to succeed: %+v / %+v", results[0], results[2])
	}
	if results[1].OK || !strings.Contains(results[1].Error, "timed out") {
		t.Fatalf("expected timeout for slow account, got %+v", results[1])
	}
	var unsupported *UnsupportedError
	if results[3].OK || !errors.As(results[3].Err, &unsupported) {
		t.Fatalf("expected unsupported for api-key account, got %+v", results[3])
	}
	var credErr *CredentialError
	if results[4].OK || !errors.As(results[4].Err, &credErr) {
		t.Fatalf("expected credential error for missing account, got %+v", results[4])
	}
}

func TestFetchAllEmpty(t *testing.T) {
	env := newTestEnv(t)
	if results := env.svc.FetchAll(context.Background(), nil, time.Second, 4); len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestFetchOneNonSuccessStatus(t *testing.T) {
	body := strings.Repeat("é", 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	env := newTestEnv(t)
	env.svc.Settings().UsageURL = server.URL
	writeTokenAuth(t, env, "a", "token", "acct-a")

	result := env.svc.FetchOne(context.Background(), "a", time.Second)
	var remote *RemoteError
	if result.OK || !errors.As(result.Err, &remote) {
		t.Fatalf("expected remote error, got %+v", result)
	}
	if remote.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", remote.Status)
	}
	if !utf8.ValidString(remote.Snippet) || len(remote.Snippet) > snippetLimit+len("…") {
		t.Fatalf("snippet not truncated cleanly: %d bytes", len(remote.Snippet))
	}
}

func TestFetchOneSendsHeaders(t *testing.T) {
	var gotAuth, gotAccount, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccount = r.Header.Get("ChatGPT-Account-Id")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(usageBody))
	}))
	defer server.Close()

	env := newTestEnv(t)
	env.svc.Settings().UsageURL = server.URL
	writeTokenAuth(t, env, "a", "token-a", "acct-a")

	result := env.svc.FetchOne(context.Background(), "a", 0)
	if !result.OK {
		t.Fatalf("fetch failed: %+v", result)
	}
	if gotAuth != "Bearer token-a" || gotAccount != "acct-a" || gotAgent != userAgent {
		t.Fatalf("unexpected headers: %q %q %q", gotAuth, gotAccount, gotAgent)
	}
}

func TestNormalizeUsage(t *testing.T) {
	usage, err := normalizeUsage([]byte(usageBody))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if usage.PlanType != "plus" {
		t.Fatalf("unexpected plan %q", usage.PlanType)
	}
	if usage.RateLimit == nil || usage.RateLimit.PrimaryWindow == nil {
		t.Fatalf("expected primary window")
	}
	if usage.RateLimit.PrimaryWindow.UsedPercent != 100 {
		t.Fatalf("used percent should clamp to 100, got %v", usage.RateLimit.PrimaryWindow.UsedPercent)
	}
	if usage.RateLimit.SecondaryWindow != nil {
		t.Fatalf("missing window should stay nil")
	}
	if usage.RateLimit.LimitReached != nil {
		t.Fatalf("missing limit_reached should stay nil")
	}
	if usage.Credits == nil || usage.Credits.Balance == nil || *usage.Credits.Balance != 12.5 {
		t.Fatalf("unexpected credits %+v", usage.Credits)
	}
	if usage.CodeReviewRateLimit != nil {
		t.Fatalf("expected no code review limit")
	}
}

func TestNormalizeUsageRejectsGarbage(t *testing.T) {
	_, err := normalizeUsage([]byte("<html>oops</html>"))
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Snippet != "<html>oops</html>" {
		t.Fatalf("expected remote error with snippet, got %v", err)
	}
}
