package app

import (
	"path/filepath"
	"strings"
)

const (
	codexToolID       = "codex"
	authFileName      = "auth.json"
	codexConfigName   = "config.toml"
	containerCodexDir = "/home/codex/.codex"
)

// Layout resolves the on-disk state tree:
//
//	<root>/codex/<account>/auth.json
//	<root>/codex-snapshots/<name>/auth.json
//	<root>/browser/<account>/
//	<root>/tools/<toolId>/<account>/{config,data,state}/
type Layout struct {
	Root string
}

func NewLayout(settings *Settings) Layout {
	return Layout{Root: settings.StateDir}
}

func (l Layout) CodexRoot() string {
	return filepath.Join(l.Root, "codex")
}

func (l Layout) CodexAccountDir(account string) string {
	return filepath.Join(l.CodexRoot(), account)
}

func (l Layout) CodexAuthPath(account string) string {
	return filepath.Join(l.CodexAccountDir(account), authFileName)
}

func (l Layout) CodexConfigPath(account string) string {
	return filepath.Join(l.CodexAccountDir(account), codexConfigName)
}

func (l Layout) SnapshotRoot() string {
	return filepath.Join(l.Root, "codex-snapshots")
}

func (l Layout) SnapshotDir(name string) string {
	return filepath.Join(l.SnapshotRoot(), name)
}

func (l Layout) SnapshotAuthPath(name string) string {
	return filepath.Join(l.SnapshotDir(name), authFileName)
}

func (l Layout) BrowserRoot() string {
	return filepath.Join(l.Root, "browser")
}

func (l Layout) BrowserProfileDir(account string) string {
	return filepath.Join(l.BrowserRoot(), account)
}

func (l Layout) ClaudeConfigDir(account string) string {
	return filepath.Join(l.Root, "claude", account)
}

func (l Layout) InstallStatePath() string {
	return filepath.Join(l.Root, "install-state.json")
}

func resolvePathWithHome(raw string, home string) string {
	if strings.HasPrefix(raw, "~/") {
		return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
	}
	if raw == "~" {
		return home
	}
	return filepath.Clean(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
