package app

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

const openAIAuthClaim = "https://api.openai.com/auth"

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		i, _ := v.Int64()
		return i
	case string:
		if v == "" {
			return 0
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// toString renders ids that may arrive as JSON strings or numbers.
func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// parseJWTClaims decodes the payload segment. Padding is optional. A
// malformed token yields nil.
func parseJWTClaims(token string) map[string]any {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil
	}
	claims := map[string]any{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return claims
}

func authClaims(claims map[string]any) map[string]any {
	auth, _ := claims[openAIAuthClaim].(map[string]any)
	return auth
}

func extractAccountID(claims map[string]any) string {
	if claims == nil {
		return ""
	}
	if id, _ := claims["chatgpt_account_id"].(string); id != "" {
		return id
	}
	if auth := authClaims(claims); auth != nil {
		if id, _ := auth["chatgpt_account_id"].(string); id != "" {
			return id
		}
	}
	return ""
}

func extractEmail(claims map[string]any) string {
	if claims == nil {
		return ""
	}
	if email, _ := claims["email"].(string); email != "" {
		return email
	}
	if profile, ok := claims["https://api.openai.com/profile"].(map[string]any); ok {
		if email, _ := profile["email"].(string); email != "" {
			return email
		}
	}
	return ""
}

func extractPlanType(claims map[string]any) string {
	if auth := authClaims(claims); auth != nil {
		plan, _ := auth["chatgpt_plan_type"].(string)
		return plan
	}
	return ""
}

func extractOrganizations(claims map[string]any) []Organization {
	auth := authClaims(claims)
	if auth == nil {
		return nil
	}
	list, _ := auth["organizations"].([]any)
	out := make([]Organization, 0, len(list))
	for _, item := range list {
		org, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := org["title"].(string)
		role, _ := org["role"].(string)
		isDefault, _ := org["is_default"].(bool)
		out = append(out, Organization{
			ID:        toString(org["id"]),
			Title:     title,
			Role:      role,
			IsDefault: isDefault,
		})
	}
	return out
}
