package config

// MergeToolTables combines user and project tool definitions.
//
// Policy: a project definition replaces the user definition for the same id
// as a whole. Fields are never merged across the two files, so a project
// entry that omits `env` does not inherit the user's `env`. Ids defined on
// only one side pass through unchanged.
func MergeToolTables(user, project ToolTable) ToolTable {
	merged := make(ToolTable, len(user)+len(project))
	for id, def := range user {
		merged[id] = copyTable(def)
	}
	for id, def := range project {
		merged[id] = copyTable(def)
	}
	return merged
}

func copyTable(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
