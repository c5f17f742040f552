package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// SetProjectDefault records `<toolId>_account = account` in the project
// config visible from cwd, creating the canonical file in cwd when none
// exists. Other keys are preserved; comments are not.
func SetProjectDefault(cwd, toolID, account string) (string, error) {
	if err := ValidateAccountLabel(account); err != nil {
		return "", err
	}
	path, found, err := FindProjectConfig(cwd)
	if err != nil {
		return "", err
	}
	if !found {
		abs, err := filepath.Abs(cwd)
		if err != nil {
			return "", err
		}
		path = filepath.Join(abs, ProjectConfigName)
	}
	data, err := LoadFile(path)
	if err != nil {
		return "", err
	}
	data[AccountKey(toolID)] = account

	encoded, err := toml.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := replaceFile(path, encoded); err != nil {
		return "", err
	}
	return path, nil
}

func replaceFile(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
