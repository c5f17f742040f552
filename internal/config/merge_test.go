package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeToolTablesProjectReplacesWholeDefinition(t *testing.T) {
	user := ToolTable{
		"aider":     {"mode": "native", "command": "aider", "env": map[string]any{"A": "1"}},
		"only-user": {"mode": "native", "command": "u"},
	}
	project := ToolTable{
		"aider":        {"mode": "native", "command": "aider-dev"},
		"only-project": {"mode": "container", "image": "img"},
	}

	merged := MergeToolTables(user, project)

	assert.Equal(t, project["aider"], merged["aider"])
	assert.NotContains(t, merged["aider"], "env")
	assert.Equal(t, user["only-user"], merged["only-user"])
	assert.Equal(t, project["only-project"], merged["only-project"])
	assert.Len(t, merged, 3)
}

func TestMergeToolTablesDoesNotAliasInputs(t *testing.T) {
	user := ToolTable{"x": {"command": "x"}}
	merged := MergeToolTables(user, nil)
	merged["x"]["command"] = "changed"
	assert.Equal(t, "x", user["x"]["command"])
}
