// Package tools maps tool ids to built-in drivers or to tool definitions
// declared under `[tools.<id>]` in the user or project config.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Mode string

const (
	ModeNative    Mode = "native"
	ModeContainer Mode = "container"
)

const DefaultWorkdir = "/work"

// ToolDefinition is one configured tool.
type ToolDefinition struct {
	ID              string            `mapstructure:"-" json:"id" yaml:"id" toml:"-"`
	Mode            Mode              `mapstructure:"mode" json:"mode" yaml:"mode" toml:"mode"`
	Command         string            `mapstructure:"command" json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	Args            []string          `mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	Isolate         *bool             `mapstructure:"isolate" json:"isolate,omitempty" yaml:"isolate,omitempty" toml:"isolate,omitempty"`
	Env             map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	Image           string            `mapstructure:"image" json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`
	Workdir         string            `mapstructure:"workdir" json:"workdir,omitempty" yaml:"workdir,omitempty" toml:"workdir,omitempty"`
	ConfigMountPath string            `mapstructure:"config_mount_path" json:"config_mount_path,omitempty" yaml:"config_mount_path,omitempty" toml:"config_mount_path,omitempty"`
}

// Isolated reports whether a native tool gets per-account XDG directories.
// Unset means true.
func (d *ToolDefinition) Isolated() bool {
	return d.Isolate == nil || *d.Isolate
}

func (d *ToolDefinition) EffectiveWorkdir() string {
	if strings.TrimSpace(d.Workdir) == "" {
		return DefaultWorkdir
	}
	return d.Workdir
}

// SortedEnv returns the declared environment as KEY=VALUE pairs.
func (d *ToolDefinition) SortedEnv() []string {
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+d.Env[k])
	}
	return out
}

// Decode turns a raw `[tools.<id>]` table into a definition. Keys the
// schema does not know are returned, not rejected.
func Decode(id string, raw map[string]any) (*ToolDefinition, []string, error) {
	def := &ToolDefinition{}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           def,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := dec.Decode(stringifyEnv(raw)); err != nil {
		return nil, nil, fmt.Errorf("tools.%s: %w", id, err)
	}
	def.ID = id
	def.Mode = Mode(strings.ToLower(strings.TrimSpace(string(def.Mode))))
	sort.Strings(md.Unused)
	return def, md.Unused, nil
}

// stringifyEnv renders non-string env values the way a shell would see
// them (true, 3) instead of mapstructure's weak conversion (1, 3).
func stringifyEnv(raw map[string]any) map[string]any {
	env, ok := raw["env"].(map[string]any)
	if !ok {
		return raw
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	strEnv := make(map[string]any, len(env))
	for k, v := range env {
		if s, ok := v.(string); ok {
			strEnv[k] = s
			continue
		}
		strEnv[k] = fmt.Sprint(v)
	}
	out["env"] = strEnv
	return out
}
