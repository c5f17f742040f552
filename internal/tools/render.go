package tools

import (
	"encoding/json"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var Formats = []string{"toml", "json", "yaml"}

// Render prints a definition. TOML output is a `[tools.<id>]` table that
// can be pasted into a config file.
func Render(def *ToolDefinition, format string) ([]byte, error) {
	switch format {
	case "", "toml":
		return toml.Marshal(map[string]any{"tools": map[string]*ToolDefinition{def.ID: def}})
	case "json":
		out, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		return yaml.Marshal(def)
	}
	return nil, fmt.Errorf("unknown format %q (expected toml, json or yaml)", format)
}

// RenderAny prints built-ins and validation results, which have no TOML
// form worth pasting.
func RenderAny(v any, format string) ([]byte, error) {
	switch format {
	case "", "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		return yaml.Marshal(v)
	case "toml":
		return toml.Marshal(v)
	}
	return nil, fmt.Errorf("unknown format %q (expected toml, json or yaml)", format)
}
