package tools

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

var knownKeys = map[string]bool{
	"mode": true, "command": true, "args": true, "isolate": true, "env": true,
	"image": true, "workdir": true, "config_mount_path": true,
}

var nativeOnly = []string{"isolate"}
var containerOnly = []string{"image", "workdir", "config_mount_path"}

// Validation is the outcome of ValidateToolDef. Warnings never block
// dispatch.
type Validation struct {
	ID       string   `json:"id" yaml:"id"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

func ValidateToolDef(id string, raw map[string]any) Validation {
	v := Validation{ID: id, Errors: []string{}, Warnings: []string{}}
	errorf := func(format string, args ...any) { v.Errors = append(v.Errors, fmt.Sprintf(format, args...)) }
	warnf := func(format string, args ...any) { v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...)) }

	var mode Mode
	switch m := raw["mode"].(type) {
	case nil:
		errorf("mode is required (native or container)")
	case string:
		mode = Mode(strings.ToLower(strings.TrimSpace(m)))
		if mode != ModeNative && mode != ModeContainer {
			errorf("unknown mode %q (expected native or container)", m)
		}
	default:
		errorf("mode must be a string")
	}

	switch mode {
	case ModeNative:
		if s, ok := raw["command"].(string); !ok || strings.TrimSpace(s) == "" {
			errorf("native mode requires command")
		}
		for _, key := range containerOnly {
			if _, ok := raw[key]; ok {
				warnf("%s is ignored in native mode", key)
			}
		}
	case ModeContainer:
		if s, ok := raw["image"].(string); !ok || strings.TrimSpace(s) == "" {
			errorf("container mode requires image")
		}
		for _, key := range nativeOnly {
			if _, ok := raw[key]; ok {
				warnf("%s is ignored in container mode", key)
			}
		}
	}

	for _, key := range []string{"workdir", "config_mount_path"} {
		val, ok := raw[key]
		if !ok {
			continue
		}
		s, isString := val.(string)
		switch {
		case !isString:
			errorf("%s must be a string", key)
		case !path.IsAbs(s):
			errorf("%s must be an absolute path, got %q", key, s)
		}
	}

	if val, ok := raw["isolate"]; ok {
		if _, isBool := val.(bool); !isBool {
			errorf("isolate must be a boolean")
		}
	}

	if val, ok := raw["args"]; ok {
		list, isList := val.([]any)
		if !isList {
			errorf("args must be an array of strings")
		} else {
			for i, item := range list {
				if _, isString := item.(string); !isString {
					errorf("args[%d] must be a string", i)
				}
			}
		}
	}

	if val, ok := raw["env"]; ok {
		env, isTable := val.(map[string]any)
		if !isTable {
			errorf("env must be a table")
		} else {
			keys := sortedKeys(env)
			for _, k := range keys {
				if _, isString := env[k].(string); !isString {
					warnf("env.%s is a %T and will be stringified", k, env[k])
				}
			}
		}
	}

	for _, k := range sortedKeys(raw) {
		if !knownKeys[k] {
			warnf("unknown key %q", k)
		}
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
