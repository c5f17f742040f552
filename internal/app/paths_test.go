package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestSettingsDefaults(t *testing.T) {
	s, err := SettingsFromEnv(mapLookup(map[string]string{"HOME": "/tmp/home-default"}))
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if s.StateDir != "/tmp/home-default/.agent-switcher" {
		t.Fatalf("unexpected state dir %q", s.StateDir)
	}
	if s.CodexImage != defaultCodexImage || s.SyncImage != defaultSyncImage {
		t.Fatalf("unexpected images %q %q", s.CodexImage, s.SyncImage)
	}
	if s.AutoStopPortConflicts {
		t.Fatalf("auto stop should default off")
	}
	if s.LimitsTimeout != defaultLimitsTimeout || s.LimitsConcurrency != defaultLimitsConcurrency {
		t.Fatalf("unexpected limits settings %v %d", s.LimitsTimeout, s.LimitsConcurrency)
	}
	if s.UserConfigPath != "" {
		t.Fatalf("unexpected user config override %q", s.UserConfigPath)
	}
}

func TestSettingsOverrides(t *testing.T) {
	s, err := SettingsFromEnv(mapLookup(map[string]string{
		"HOME":                              "/tmp/home-state",
		"AGENT_SWITCHER_HOME":               "~/state",
		"AGENT_SWITCHER_CONFIG":             "~/cfg/agent-switcher.toml",
		"AGENT_SWITCHER_AUTO_STOP":          "yes",
		"AGENT_SWITCHER_LIMITS_TIMEOUT_MS":  "2500",
		"AGENT_SWITCHER_LIMITS_CONCURRENCY": "zero",
		"AGENT_SWITCHER_CODEX_IMAGE":        " custom/codex:1 ",
	}))
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if s.StateDir != "/tmp/home-state/state" {
		t.Fatalf("unexpected state dir %q", s.StateDir)
	}
	if s.UserConfigPath != "/tmp/home-state/cfg/agent-switcher.toml" {
		t.Fatalf("unexpected user config %q", s.UserConfigPath)
	}
	if !s.AutoStopPortConflicts {
		t.Fatalf("expected auto stop")
	}
	if s.LimitsTimeout != 2500*time.Millisecond {
		t.Fatalf("unexpected timeout %v", s.LimitsTimeout)
	}
	if s.LimitsConcurrency != defaultLimitsConcurrency {
		t.Fatalf("invalid concurrency should fall back, got %d", s.LimitsConcurrency)
	}
	if s.CodexImage != "custom/codex:1" {
		t.Fatalf("unexpected image %q", s.CodexImage)
	}
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout(&Settings{StateDir: "/state"})
	cases := map[string]string{
		l.CodexAuthPath("work"):       "/state/codex/work/auth.json",
		l.CodexConfigPath("work"):     "/state/codex/work/config.toml",
		l.SnapshotAuthPath("monday"):  "/state/codex-snapshots/monday/auth.json",
		l.BrowserProfileDir("work"):   "/state/browser/work",
		l.ClaudeConfigDir("personal"): "/state/claude/personal",
		l.InstallStatePath():          "/state/install-state.json",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestMoveAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	backup, err := moveAside(path, "bak", now)
	if err != nil || backup != "" {
		t.Fatalf("missing file should be a no-op, got %q, %v", backup, err)
	}

	for i, want := range []string{path + ".bak-20260102T030405Z", path + ".bak-20260102T030405Z.1"} {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		backup, err := moveAside(path, "bak", now)
		if err != nil {
			t.Fatalf("move aside: %v", err)
		}
		if backup != want {
			t.Fatalf("got %q, want %q", backup, want)
		}
	}
	first, _ := os.ReadFile(path + ".bak-20260102T030405Z")
	if string(first) != "a" {
		t.Fatalf("first backup overwritten: %q", first)
	}
}

func TestEnsureFileStoreModePreservesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("model = \"o3\"\ncli_auth_credentials_store = \"keyring\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := storeMode(path); got != "keyring" {
		t.Fatalf("expected keyring, got %q", got)
	}

	if err := ensureFileStoreMode(path); err != nil {
		t.Fatalf("ensure store mode: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(content), "model") || !strings.Contains(string(content), "o3") {
		t.Fatalf("other keys lost: %s", content)
	}
	if got := storeMode(path); got != fileStoreMode {
		t.Fatalf("expected file store mode, got %q", got)
	}
}

func TestEnsureFileStoreModeCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "config.toml")
	if err := ensureFileStoreMode(path); err != nil {
		t.Fatalf("ensure store mode: %v", err)
	}
	if !fileExists(path) {
		t.Fatalf("expected config written")
	}
}

func TestParseLoginMethod(t *testing.T) {
	if m, err := ParseLoginMethod(""); err != nil || m != LoginBrowser {
		t.Fatalf("empty should default to browser, got %q, %v", m, err)
	}
	if m, err := ParseLoginMethod("Device"); err != nil || m != LoginDevice {
		t.Fatalf("expected device, got %q, %v", m, err)
	}
	if _, err := ParseLoginMethod("sms"); err == nil {
		t.Fatalf("expected error")
	}
}
