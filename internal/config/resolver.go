package config

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	AccountKeySuffix = "_account"
	FallbackAccount  = "default"
)

var accountLabelPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func AccountKey(toolID string) string {
	return toolID + AccountKeySuffix
}

// Disambiguation is the reading of `<tool> [account] [args...]`.
type Disambiguation struct {
	AccountArg      string
	Args            []string
	IsSubcommand    bool
	LooksLikeOption bool
}

// Disambiguate decides whether the first positional token is an account
// label. A known helper subcommand or a dash-prefixed token is moved to the
// front of Args and the account slot is cleared.
func Disambiguate(accountArg string, rest []string, helpers map[string]bool) Disambiguation {
	out := Disambiguation{
		AccountArg: accountArg,
		Args:       append([]string{}, rest...),
	}
	if accountArg == "" {
		return out
	}
	isHelper := helpers[accountArg]
	isOption := strings.HasPrefix(accountArg, "-")
	if !isHelper && !isOption {
		return out
	}
	out.Args = append([]string{accountArg}, rest...)
	out.AccountArg = ""
	out.IsSubcommand = isHelper
	out.LooksLikeOption = isOption
	return out
}

// ResolveAccountOrThrow returns passed when set, else defaults[key], else a
// ResolutionError naming key.
func ResolveAccountOrThrow(passed, key string, defaults map[string]string) (string, error) {
	if v := strings.TrimSpace(passed); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(defaults[key]); v != "" {
		return v, nil
	}
	return "", &ResolutionError{Key: key, Msg: "missing account"}
}

// ResolveAccount applies the helper-subcommand fallback: helpers run without
// an explicit label against the configured default or "default".
func ResolveAccount(d Disambiguation, toolID string, resolved *Resolved) (string, error) {
	defaults := resolved.Defaults()
	key := AccountKey(toolID)
	account, err := ResolveAccountOrThrow(d.AccountArg, key, defaults)
	if err != nil {
		if d.IsSubcommand {
			account = FallbackAccount
		} else {
			return "", err
		}
	}
	if err := ValidateAccountLabel(account); err != nil {
		return "", err
	}
	return account, nil
}

func ValidateAccountLabel(label string) error {
	if label == "" {
		return fmt.Errorf("account label is required")
	}
	if !accountLabelPattern.MatchString(label) {
		return fmt.Errorf("invalid account label %q (allowed: letters, numbers, ., _, -)", label)
	}
	// Labels name directories under the state root.
	if label == "." || label == ".." {
		return fmt.Errorf("invalid account label %q", label)
	}
	return nil
}
