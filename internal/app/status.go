package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agent-switcher/internal/tools"
)

// List scans the host cache for codex accounts, sorted by label.
func (s *Service) List() ([]AccountRecord, error) {
	labels, has, err := scanCredentialDirs(s.layout.CodexRoot())
	if err != nil {
		return nil, WrapExit(ExitIOFailure, err)
	}
	out := make([]AccountRecord, 0, len(labels))
	for _, label := range labels {
		out = append(out, AccountRecord{Label: label, HasCredential: has[label]})
	}
	return out, nil
}

// LoggedInAccounts are the accounts with a host credential, the input of a
// limits batch.
func (s *Service) LoggedInAccounts() ([]string, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		if r.HasCredential {
			out = append(out, r.Label)
		}
	}
	return out, nil
}

// ListWithVolumes is List plus whether each account has a codex volume.
// Accounts that only exist as volumes (api-key logins) are included.
func (s *Service) ListWithVolumes(ctx context.Context) ([]AccountRecord, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	if err := s.requireVolumes(); err != nil {
		return nil, WrapExit(ExitIOFailure, err)
	}
	names, err := s.volumes.VolumesLabeled(ctx, map[string]string{tools.LabelTool: codexToolID})
	if err != nil {
		return nil, WrapExit(ExitIOFailure, fmt.Errorf("list volumes: %w", err))
	}
	prefix := codexVolume("")
	inVolume := map[string]bool{}
	for _, name := range names {
		if label := strings.TrimPrefix(name, prefix); label != name && label != "" {
			inVolume[label] = true
		}
	}
	seen := map[string]bool{}
	for i := range records {
		has := inVolume[records[i].Label]
		records[i].HasVolume = &has
		seen[records[i].Label] = true
	}
	for _, label := range sortedKeys(inVolume) {
		if seen[label] {
			continue
		}
		has := true
		records = append(records, AccountRecord{Label: label, HasVolume: &has})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Label < records[j].Label })
	return records, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
