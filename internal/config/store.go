package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const toolsKey = "tools"

// ToolTable maps a tool id to its raw `[tools.<id>]` table.
type ToolTable map[string]map[string]any

// Resolved is the configuration visible from one working directory.
// It is computed fresh for every invocation.
type Resolved struct {
	ProjectConfigPath string
	ProjectData       map[string]any
	UserConfigPath    string
	UserData          map[string]any
	MergedTools       ToolTable
}

type Store struct {
	userOverride string
	home         string
}

func NewStore(userOverride, home string) *Store {
	return &Store{userOverride: userOverride, home: home}
}

func (s *Store) Resolve(cwd string) (*Resolved, error) {
	out := &Resolved{
		ProjectData: map[string]any{},
		UserData:    map[string]any{},
	}

	projectPath, found, err := FindProjectConfig(cwd)
	if err != nil {
		return nil, err
	}
	if found {
		out.ProjectConfigPath = projectPath
		data, err := LoadFile(projectPath)
		if err != nil {
			return nil, err
		}
		out.ProjectData = data
	}

	userPath, userExists := FindUserConfig(s.userOverride, s.home)
	out.UserConfigPath = userPath
	if userExists {
		data, err := LoadFile(userPath)
		if err != nil {
			return nil, err
		}
		out.UserData = data
	}

	userTools, err := toolTables(out.UserConfigPath, out.UserData)
	if err != nil {
		return nil, err
	}
	projectTools, err := toolTables(out.ProjectConfigPath, out.ProjectData)
	if err != nil {
		return nil, err
	}
	out.MergedTools = MergeToolTables(userTools, projectTools)
	return out, nil
}

// LoadFile parses one TOML file. A missing file yields empty data.
func LoadFile(path string) (map[string]any, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	data := map[string]any{}
	if err := toml.Unmarshal(bytes, &data); err != nil {
		return nil, &ConfigError{Path: path, Msg: parserMessage(err), Err: err}
	}
	return data, nil
}

func parserMessage(err error) string {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("line %d, column %d: %s", row, col, decodeErr.Error())
	}
	return err.Error()
}

func toolTables(path string, data map[string]any) (ToolTable, error) {
	out := ToolTable{}
	raw, ok := data[toolsKey]
	if !ok {
		return out, nil
	}
	tables, ok := raw.(map[string]any)
	if !ok {
		return nil, &ConfigError{Path: path, Msg: "`tools` must be a table"}
	}
	for id, value := range tables {
		table, ok := value.(map[string]any)
		if !ok {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("`tools.%s` must be a table", id)}
		}
		out[id] = table
	}
	return out, nil
}

// Defaults returns the `<toolId>_account` keys. Project values win over user
// values for the same key.
func (r *Resolved) Defaults() map[string]string {
	out := map[string]string{}
	for _, data := range []map[string]any{r.UserData, r.ProjectData} {
		for key, value := range data {
			if !strings.HasSuffix(key, AccountKeySuffix) {
				continue
			}
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				out[key] = strings.TrimSpace(s)
			}
		}
	}
	return out
}

func (r *Resolved) DefaultAccount(toolID string) (string, bool) {
	v, ok := r.Defaults()[AccountKey(toolID)]
	return v, ok
}

// ConfiguredToolIDs returns the merged tool ids, sorted.
func (r *Resolved) ConfiguredToolIDs() []string {
	ids := make([]string, 0, len(r.MergedTools))
	for id := range r.MergedTools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
