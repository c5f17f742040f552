package tools

import (
	"fmt"
	"sort"
	"strings"

	"agent-switcher/internal/config"
)

// BuiltIn is a driver compiled into the binary. Built-ins shadow any
// configured tool with the same id.
type BuiltIn struct {
	ID          string   `json:"id" yaml:"id"`
	Mode        Mode     `json:"mode" yaml:"mode"`
	Description string   `json:"description" yaml:"description"`
	Operations  []string `json:"operations" yaml:"operations"`
}

// CodexOperations are the helper subcommands of the codex driver, in
// help order. "run" is implicit when no helper is named.
var CodexOperations = []string{
	"run", "login", "logout", "status", "whoami", "limits", "app",
	"rebuild", "list", "snapshots", "save", "switch", "use",
}

var builtIns = map[string]BuiltIn{
	"codex": {
		ID:          "codex",
		Mode:        ModeContainer,
		Description: "OpenAI Codex CLI in a container with one volume per account",
		Operations:  CodexOperations,
	},
	"claude": {
		ID:          "claude",
		Mode:        ModeNative,
		Description: "Claude CLI with one config directory per account",
		Operations:  []string{"run"},
	},
}

func GetBuiltIn(id string) (BuiltIn, bool) {
	b, ok := builtIns[id]
	return b, ok
}

func ListBuiltIns() []BuiltIn {
	out := make([]BuiltIn, 0, len(builtIns))
	for _, b := range builtIns {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HelperSet returns the operations of a built-in as a lookup set, without
// "run" since a bare invocation already runs the tool.
func HelperSet(b BuiltIn) map[string]bool {
	out := map[string]bool{}
	for _, op := range b.Operations {
		if op != "run" {
			out[op] = true
		}
	}
	return out
}

// Resolver reads configuration fresh for each lookup.
type Resolver interface {
	Resolve(cwd string) (*config.Resolved, error)
}

type Registry struct {
	store Resolver
}

func NewRegistry(store Resolver) *Registry {
	return &Registry{store: store}
}

// ListToolIDsForCwd is the sorted union of built-in and configured ids.
func (r *Registry) ListToolIDsForCwd(cwd string) ([]string, error) {
	resolved, err := r.store.Resolve(cwd)
	if err != nil {
		return nil, err
	}
	return ListToolIDs(resolved), nil
}

func ListToolIDs(resolved *config.Resolved) []string {
	seen := map[string]bool{}
	for _, b := range ListBuiltIns() {
		seen[b.ID] = true
	}
	for _, id := range resolved.ConfiguredToolIDs() {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) ResolveConfiguredTool(id, cwd string) (*ToolDefinition, error) {
	resolved, err := r.store.Resolve(cwd)
	if err != nil {
		return nil, err
	}
	return ResolveConfigured(id, resolved)
}

// ResolveConfigured decodes the merged definition for id and checks only
// the field its mode cannot run without. Full validation is ValidateToolDef.
func ResolveConfigured(id string, resolved *config.Resolved) (*ToolDefinition, error) {
	if _, ok := builtIns[id]; ok {
		return nil, fmt.Errorf("%s is a built-in tool; run it with `agent-switcher %s`", id, id)
	}
	raw, ok := resolved.MergedTools[id]
	if !ok {
		return nil, &config.ResolutionError{
			Key: "tools." + id,
			Msg: fmt.Sprintf("unknown tool %q", id),
		}
	}
	def, _, err := Decode(id, raw)
	if err != nil {
		return nil, &config.ConfigError{Path: sourcePath(id, resolved), Msg: err.Error(), Err: err}
	}
	switch def.Mode {
	case ModeNative:
		if strings.TrimSpace(def.Command) == "" {
			return nil, invalid(id, resolved, "native mode requires command")
		}
	case ModeContainer:
		if strings.TrimSpace(def.Image) == "" {
			return nil, invalid(id, resolved, "container mode requires image")
		}
	default:
		return nil, invalid(id, resolved, fmt.Sprintf("unknown mode %q", def.Mode))
	}
	return def, nil
}

func invalid(id string, resolved *config.Resolved, msg string) error {
	return &config.ConfigError{Path: sourcePath(id, resolved), Msg: fmt.Sprintf("tools.%s: %s", id, msg)}
}

// sourcePath is the file the effective definition came from.
func sourcePath(id string, resolved *config.Resolved) string {
	if tools, ok := resolved.ProjectData["tools"].(map[string]any); ok {
		if _, ok := tools[id]; ok {
			return resolved.ProjectConfigPath
		}
	}
	return resolved.UserConfigPath
}
