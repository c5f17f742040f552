package app

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	signature := base64.RawURLEncoding.EncodeToString([]byte("sig"))
	return header + "." + payload + "." + signature
}

func TestExtractAccountID(t *testing.T) {
	jwt := makeJWT(t, map[string]any{
		"chatgpt_account_id": "org_1",
	})
	claims := parseJWTClaims(jwt)
	if got := extractAccountID(claims); got != "org_1" {
		t.Fatalf("expected org_1, got %q", got)
	}
}

func TestExtractAccountIDFromAuthClaim(t *testing.T) {
	jwt := makeJWT(t, map[string]any{
		openAIAuthClaim: map[string]any{"chatgpt_account_id": "acct-nested"},
	})
	if got := extractAccountID(parseJWTClaims(jwt)); got != "acct-nested" {
		t.Fatalf("expected acct-nested, got %q", got)
	}
}

func TestExtractEmail(t *testing.T) {
	jwt := makeJWT(t, map[string]any{
		"email": "test@example.com",
	})
	claims := parseJWTClaims(jwt)
	if got := extractEmail(claims); got != "test@example.com" {
		t.Fatalf("expected test@example.com, got %q", got)
	}
}

func TestParseJWTClaimsAcceptsPadding(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"email":"a@b.c"}`))
	if !strings.HasSuffix(payload, "=") {
		t.Fatalf("test payload should be padded: %q", payload)
	}
	claims := parseJWTClaims("h." + payload + ".s")
	if got := extractEmail(claims); got != "a@b.c" {
		t.Fatalf("expected a@b.c, got %q", got)
	}
}

func TestParseJWTClaimsMalformed(t *testing.T) {
	for _, token := range []string{"", "a.b", "a.!!!.c", "a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c"} {
		if claims := parseJWTClaims(token); claims != nil {
			t.Fatalf("expected nil claims for %q, got %v", token, claims)
		}
	}
}

func TestExtractOrganizations(t *testing.T) {
	jwt := makeJWT(t, map[string]any{
		openAIAuthClaim: map[string]any{
			"chatgpt_plan_type": "team",
			"organizations": []any{
				map[string]any{"id": "org-1", "title": "Acme", "role": "member", "is_default": true},
				"garbage",
				map[string]any{"id": 42, "title": "Numeric"},
			},
		},
	})
	claims := parseJWTClaims(jwt)
	orgs := extractOrganizations(claims)
	if len(orgs) != 2 {
		t.Fatalf("expected 2 organizations, got %+v", orgs)
	}
	if orgs[0].ID != "org-1" || !orgs[0].IsDefault || orgs[0].Role != "member" {
		t.Fatalf("unexpected first organization %+v", orgs[0])
	}
	if orgs[1].ID != "42" {
		t.Fatalf("numeric id should stringify, got %q", orgs[1].ID)
	}
	if got := extractPlanType(claims); got != "team" {
		t.Fatalf("expected team, got %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"roshan@example.com": "r…n@example.com",
		"ab@example.com":     "a…@example.com",
		"x@example.com":      "x…@example.com",
	}
	for in, want := range cases {
		if got := maskEmail(in); got != want {
			t.Fatalf("maskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskID(t *testing.T) {
	cases := map[string]string{
		"acct-1234567890": "acct-123…",
		"abcd":            "ab…",
		"":                "",
	}
	for in, want := range cases {
		if got := maskID(in); got != want {
			t.Fatalf("maskID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToInt64AndFloat(t *testing.T) {
	if got := toInt64("42"); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := toInt64(float64(7)); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := toFloat("12.5"); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
	if got := toFloat(nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
