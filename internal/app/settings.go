package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultCodexImage        = "agent-switcher/codex:latest"
	defaultSyncImage         = "alpine:3.20"
	defaultLimitsTimeout     = 10 * time.Second
	defaultLimitsConcurrency = 4
	defaultClaudeCommand     = "claude"
)

// Settings is built once at startup and handed to every component.
// Nothing below the CLI layer reads the process environment.
type Settings struct {
	Home                  string
	StateDir              string
	UserConfigPath        string
	CodexImage            string
	SyncImage             string
	AutoStopPortConflicts bool
	UsageURL              string
	LimitsTimeout         time.Duration
	LimitsConcurrency     int
	OpenAIAPIKey          string
	BrowserCommand        string
	ClaudeCommand         string
	LogLevel              string
}

type LookupFunc func(key string) (string, bool)

func SettingsFromEnv(lookup LookupFunc) (*Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	home := get("HOME")
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = h
	}

	s := &Settings{
		Home:                  home,
		StateDir:              resolvePathWithHome(firstNonEmpty(get("AGENT_SWITCHER_HOME"), filepath.Join(home, ".agent-switcher")), home),
		CodexImage:            firstNonEmpty(get("AGENT_SWITCHER_CODEX_IMAGE"), defaultCodexImage),
		SyncImage:             firstNonEmpty(get("AGENT_SWITCHER_SYNC_IMAGE"), defaultSyncImage),
		AutoStopPortConflicts: parseBool(get("AGENT_SWITCHER_AUTO_STOP")),
		UsageURL:              firstNonEmpty(get("AGENT_SWITCHER_USAGE_URL"), defaultUsageURL),
		LimitsTimeout:         defaultLimitsTimeout,
		LimitsConcurrency:     defaultLimitsConcurrency,
		OpenAIAPIKey:          get("OPENAI_API_KEY"),
		BrowserCommand:        get("AGENT_SWITCHER_BROWSER"),
		ClaudeCommand:         firstNonEmpty(get("AGENT_SWITCHER_CLAUDE_BIN"), defaultClaudeCommand),
		LogLevel:              firstNonEmpty(get("AGENT_SWITCHER_LOG_LEVEL"), "info"),
	}
	if raw := get("AGENT_SWITCHER_CONFIG"); raw != "" {
		s.UserConfigPath = resolvePathWithHome(raw, home)
	}
	if raw := get("AGENT_SWITCHER_LIMITS_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			s.LimitsTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if raw := get("AGENT_SWITCHER_LIMITS_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			s.LimitsConcurrency = n
		}
	}
	return s, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
