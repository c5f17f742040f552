package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-switcher/internal/app"
	"agent-switcher/internal/config"
	"agent-switcher/internal/tools"
)

const userConfig = `
codex_account = "work"

[tools.gh]
mode = "native"
command = "gh"

[tools.pg]
mode = "container"
image = "postgres:16"
workdir = "relative"
colour = "blue"
`

// sandbox points HOME and the user config at a temp dir and runs the test
// from an empty working directory.
func sandbox(t *testing.T, cfg string) string {
	t.Helper()
	home := t.TempDir()
	work := t.TempDir()
	cfgPath := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	t.Setenv("HOME", home)
	t.Setenv("AGENT_SWITCHER_HOME", filepath.Join(home, "state"))
	t.Setenv("AGENT_SWITCHER_CONFIG", cfgPath)
	t.Setenv("AGENT_SWITCHER_LOG_LEVEL", "error")

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestToolsListShowsBuiltInsAndConfigured(t *testing.T) {
	sandbox(t, userConfig)

	out, err := execute(t, "tools", "list", "--json")
	require.NoError(t, err)

	var rows []toolRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"claude", "codex", "gh", "pg"}, ids)
	assert.Equal(t, "built-in", rows[1].Source)
	assert.Equal(t, "native", rows[2].Mode)
}

func TestToolsValidateReportsErrorsAndWarnings(t *testing.T) {
	sandbox(t, userConfig)

	out, err := execute(t, "tools", "validate")
	require.Error(t, err)
	assert.Equal(t, app.ExitUserError, app.ExitCode(err))
	assert.Contains(t, out, "gh: ok")
	assert.Contains(t, out, "pg: invalid")
	assert.Contains(t, out, "workdir must be an absolute path")
	assert.Contains(t, out, `unknown key "colour"`)

	out, err = execute(t, "tools", "validate", "gh")
	require.NoError(t, err)
	assert.Equal(t, "gh: ok\n", out)
}

func TestToolsShowFormats(t *testing.T) {
	sandbox(t, userConfig)

	out, err := execute(t, "tools", "show", "gh", "--format", "json")
	require.NoError(t, err)
	var def tools.ToolDefinition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, "gh", def.ID)
	assert.Equal(t, tools.ModeNative, def.Mode)

	out, err = execute(t, "tools", "show", "gh")
	require.NoError(t, err)
	assert.Contains(t, out, "[tools.gh]")

	_, err = execute(t, "tools", "show", "gh", "--format", "xml")
	require.Error(t, err)
}

func TestResolveCodexUsesConfiguredDefault(t *testing.T) {
	sandbox(t, userConfig)

	out, err := execute(t, "resolve", "codex", "--json")
	require.NoError(t, err)
	var res resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "work", res.Account)
	assert.Equal(t, "agent-switcher-codex-work", res.Volume)
	require.NotNil(t, res.Paths)
	assert.True(t, strings.HasSuffix(res.Paths.HostAuth, filepath.Join("codex", "work", "auth.json")))
}

func TestResolveMissingAccountNamesKey(t *testing.T) {
	sandbox(t, "")

	out, err := execute(t, "resolve", "gh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
	assert.Empty(t, out)

	_, err = execute(t, "resolve", "claude")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claude_account")
}

func TestParseCodexCall(t *testing.T) {
	cfgPath := sandbox(t, userConfig)
	builtIn, ok := tools.GetBuiltIn("codex")
	require.True(t, ok)
	e := &env{store: config.NewStore(cfgPath, os.Getenv("HOME"))}
	cmd := &cobra.Command{}

	cases := []struct {
		args    []string
		account string
		helper  string
		rest    []string
	}{
		{[]string{"login", "--method", "device"}, "work", "login", []string{"--method", "device"}},
		{[]string{"personal", "save", "monday"}, "personal", "save", []string{"monday"}},
		{[]string{"--model", "o3"}, "work", "run", []string{"--model", "o3"}},
		{[]string{"personal", "exec", "ls"}, "personal", "run", []string{"exec", "ls"}},
		{nil, "work", "run", []string{}},
	}
	for _, tc := range cases {
		call, err := parseCodexCall(cmd, e, builtIn, tc.args)
		require.NoError(t, err, "args %v", tc.args)
		assert.Equal(t, tc.account, call.account, "args %v", tc.args)
		assert.Equal(t, tc.helper, call.helper, "args %v", tc.args)
		assert.Equal(t, tc.rest, call.args, "args %v", tc.args)
	}
}

func TestParseCodexCallWithoutDefault(t *testing.T) {
	cfgPath := sandbox(t, "")
	builtIn, _ := tools.GetBuiltIn("codex")
	e := &env{store: config.NewStore(cfgPath, os.Getenv("HOME"))}

	_, err := parseCodexCall(&cobra.Command{}, e, builtIn, []string{"--model", "o3"})
	var resErr *config.ResolutionError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Equal(t, "codex_account", resErr.Key)

	_, err = parseCodexCall(&cobra.Command{}, e, builtIn, []string{"bad/label"})
	require.Error(t, err)
}

func TestTableAlignsByDisplayWidth(t *testing.T) {
	tbl := newTable("A", "B")
	tbl.add("日本", "x")
	tbl.add("abc", "y")
	var buf bytes.Buffer
	require.NoError(t, tbl.render(&buf))
	assert.Equal(t, "A     B\n日本  x\nabc   y\n", buf.String())
}

func TestLimitsOutcome(t *testing.T) {
	ok := app.LimitsResult{Account: "a", OK: true, Usage: &app.Usage{}}
	failed := app.LimitsResult{Account: "b", Error: "boom", Err: &app.CredentialError{Path: "p", Msg: "missing"}}

	assert.NoError(t, limitsOutcome([]app.LimitsResult{ok}))
	assert.Equal(t, app.ExitAuthFailure, app.ExitCode(limitsOutcome([]app.LimitsResult{failed})))
	assert.Equal(t, app.ExitPartial, app.ExitCode(limitsOutcome([]app.LimitsResult{ok, failed})))
	assert.Equal(t, app.ExitIOFailure, app.ExitCode(limitsOutcome([]app.LimitsResult{failed, failed})))
}

func TestFormatWindow(t *testing.T) {
	reset := int64(2*3600 + 3*60 + 10)
	assert.Equal(t, "42% (resets in 2h3m)", formatWindow(&app.UsageWindow{UsedPercent: 42, ResetAfterSeconds: &reset}))
	soon := int64(20)
	assert.Equal(t, "100% (resets in <1m)", formatWindow(&app.UsageWindow{UsedPercent: 100, ResetAfterSeconds: &soon}))
	assert.Equal(t, "", formatWindow(nil))
	assert.Equal(t, "5m", formatReset(5*time.Minute))
}

func TestExitWith(t *testing.T) {
	assert.NoError(t, exitWith(0, nil))
	err := exitWith(3, nil)
	assert.Equal(t, 3, app.ExitCode(err))
	boom := errors.New("boom")
	assert.Equal(t, boom, exitWith(0, boom))
}
