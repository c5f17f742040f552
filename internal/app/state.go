package app

import (
	"os"
	"time"
)

// installState records resumability hints for image builds. Nothing in the
// credential lifecycle depends on it.
type installState struct {
	Version     int    `json:"version"`
	CodexImage  string `json:"codexImage,omitempty"`
	LastRebuild string `json:"lastRebuild,omitempty"`
}

func loadInstallState(path string) (installState, error) {
	var s installState
	err := readJSONFile(path, &s)
	if err != nil {
		if os.IsNotExist(err) {
			return installState{Version: 1}, nil
		}
		return installState{}, err
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return s, nil
}

func saveInstallState(path string, state installState, now time.Time) error {
	state.Version = 1
	if state.LastRebuild == "" {
		state.LastRebuild = now.UTC().Format(time.RFC3339)
	}
	return writeJSONAtomic(path, state)
}
