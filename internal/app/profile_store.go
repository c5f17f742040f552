package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"agent-switcher/internal/config"
)

// scanCredentialDirs lists the subdirectories of root and whether each
// holds an auth.json. A missing root is an empty list.
func scanCredentialDirs(root string) ([]string, map[string]bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	names := make([]string, 0, len(entries))
	has := map[string]bool{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		names = append(names, name)
		has[name] = fileExists(filepath.Join(root, name, authFileName))
	}
	sort.Strings(names)
	return names, has, nil
}

// Snapshots lists saved snapshots, sorted by name.
func (s *Service) Snapshots() ([]SnapshotRecord, error) {
	names, has, err := scanCredentialDirs(s.layout.SnapshotRoot())
	if err != nil {
		return nil, WrapExit(ExitIOFailure, err)
	}
	out := make([]SnapshotRecord, 0, len(names))
	for _, name := range names {
		out = append(out, SnapshotRecord{Name: name, HasCredential: has[name]})
	}
	return out, nil
}

// Save copies an account's host credential into a named snapshot. Later
// changes to the account do not affect the snapshot.
func (s *Service) Save(account, snapshot string) (string, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return "", WrapExit(ExitUserError, err)
	}
	if err := validateSnapshotName(snapshot); err != nil {
		return "", WrapExit(ExitUserError, err)
	}
	src := s.layout.CodexAuthPath(account)
	if _, err := readAuthFile(src, account); err != nil {
		return "", err
	}
	dst := s.layout.SnapshotAuthPath(snapshot)
	if _, err := copyFileAtomic(src, dst); err != nil {
		return "", WrapExit(ExitIOFailure, err)
	}
	s.log.WithFields(log.Fields{"account": account, "snapshot": snapshot}).Info("snapshot saved")
	return dst, nil
}

// Switch applies a snapshot to an account's host cache and syncs it into
// the account volume.
func (s *Service) Switch(ctx context.Context, snapshot, account string) error {
	if err := validateSnapshotName(snapshot); err != nil {
		return WrapExit(ExitUserError, err)
	}
	if err := config.ValidateAccountLabel(account); err != nil {
		return WrapExit(ExitUserError, err)
	}
	src := s.layout.SnapshotAuthPath(snapshot)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CredentialError{
				Path: src,
				Msg:  fmt.Sprintf("snapshot %s does not exist", snapshot),
				Hint: "list snapshots with `agent-switcher codex snapshots`",
			}
		}
		return WrapExit(ExitIOFailure, err)
	}
	if err := os.MkdirAll(s.layout.CodexAccountDir(account), 0o700); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	if _, err := copyFileAtomic(src, s.layout.CodexAuthPath(account)); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	s.log.WithFields(log.Fields{"account": account, "snapshot": snapshot}).Info("snapshot applied")
	return s.Sync(ctx, account)
}
