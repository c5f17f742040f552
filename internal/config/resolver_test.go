package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codexHelpers = map[string]bool{
	"login": true, "logout": true, "status": true, "whoami": true, "limits": true,
}

func TestDisambiguate(t *testing.T) {
	cases := []struct {
		name    string
		account string
		rest    []string
		want    Disambiguation
	}{
		{
			name:    "plain account",
			account: "try1",
			rest:    []string{"login"},
			want:    Disambiguation{AccountArg: "try1", Args: []string{"login"}},
		},
		{
			name:    "helper subcommand",
			account: "limits",
			rest:    []string{"--json"},
			want:    Disambiguation{Args: []string{"limits", "--json"}, IsSubcommand: true},
		},
		{
			name:    "option flag",
			account: "--help",
			rest:    nil,
			want:    Disambiguation{Args: []string{"--help"}, LooksLikeOption: true},
		},
		{
			name:    "empty",
			account: "",
			rest:    []string{"x"},
			want:    Disambiguation{Args: []string{"x"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Disambiguate(tc.account, tc.rest, codexHelpers)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveAccountOrThrow(t *testing.T) {
	got, err := ResolveAccountOrThrow("explicit", "codex_account", map[string]string{"codex_account": "cfg"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	got, err = ResolveAccountOrThrow("", "codex_account", map[string]string{"codex_account": "cfg"})
	require.NoError(t, err)
	assert.Equal(t, "cfg", got)

	_, err = ResolveAccountOrThrow("", "codex_account", nil)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "codex_account", resErr.Key)
	assert.Contains(t, err.Error(), "codex_account")
}

func TestResolveAccountHelperFallsBack(t *testing.T) {
	d := Disambiguate("limits", nil, codexHelpers)

	got, err := ResolveAccount(d, "codex", &Resolved{})
	require.NoError(t, err)
	assert.Equal(t, FallbackAccount, got)

	withDefault := &Resolved{ProjectData: map[string]any{"codex_account": "try1"}}
	got, err = ResolveAccount(d, "codex", withDefault)
	require.NoError(t, err)
	assert.Equal(t, "try1", got)
}

func TestResolveAccountOptionRequiresDefault(t *testing.T) {
	d := Disambiguate("--version", nil, codexHelpers)
	_, err := ResolveAccount(d, "codex", &Resolved{})
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestResolveAccountRejectsBadLabel(t *testing.T) {
	for _, label := range []string{"../etc", ".", ".."} {
		d := Disambiguate(label, nil, codexHelpers)
		_, err := ResolveAccount(d, "codex", &Resolved{})
		assert.Error(t, err, "label %q", label)
		assert.Error(t, ValidateAccountLabel(label), "label %q", label)
	}
	assert.NoError(t, ValidateAccountLabel(".hidden"))
	assert.NoError(t, ValidateAccountLabel("a..b"))
}
