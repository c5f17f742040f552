package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const backupTimeLayout = "20060102T150405Z"

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}

func writeJSONAtomic(path string, value any) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	bytes = append(bytes, '\n')

	return writeFileAtomic(path, bytes, 0o600)
}

func writeFileAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", base, time.Now().UnixNano()))

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	dirFD, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer dirFD.Close()
	_ = dirFD.Sync()
	return nil
}

func readJSONFile(path string, out any) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

// copyFileAtomic copies src over dst byte for byte and returns the bytes.
func copyFileAtomic(src, dst string) ([]byte, error) {
	content, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	if err := ensureParentDir(dst); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(dst, content, 0o600); err != nil {
		return nil, err
	}
	return content, nil
}

// moveAside renames path to path.<tag>-<timestamp>. It returns "" when
// there was nothing to move. An existing backup with the same name gets a
// numeric suffix; nothing is ever overwritten.
func moveAside(path, tag string, now time.Time) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	stamp := now.UTC().Format(backupTimeLayout)
	target := fmt.Sprintf("%s.%s-%s", path, tag, stamp)
	for i := 1; fileExists(target); i++ {
		target = fmt.Sprintf("%s.%s-%s.%d", path, tag, stamp, i)
	}
	if err := os.Rename(path, target); err != nil {
		return "", err
	}
	return target, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
