package app

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"agent-switcher/internal/runner"
)

//go:embed assets/codex.Dockerfile
var codexDockerfile []byte

// Rebuild builds the codex image from the embedded Dockerfile. version
// pins the npm package; empty means latest.
func (s *Service) Rebuild(ctx context.Context, version string, noCache bool) (int, error) {
	dir, err := os.MkdirTemp("", "agent-switcher-build-")
	if err != nil {
		return 0, WrapExit(ExitIOFailure, err)
	}
	defer os.RemoveAll(dir)
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), codexDockerfile, 0o644); err != nil {
		return 0, WrapExit(ExitIOFailure, err)
	}

	args := []string{"build", "-t", s.settings.CodexImage}
	if version != "" {
		args = append(args, "--build-arg", "CODEX_VERSION="+version)
	}
	if noCache {
		args = append(args, "--no-cache")
	}
	args = append(args, dir)

	code, err := s.runner.Run(ctx, runner.DockerSpec(args))
	if err != nil {
		return 0, WrapExit(ExitIOFailure, fmt.Errorf("start docker build: %w", err))
	}
	if code != 0 {
		return code, nil
	}
	state, err := loadInstallState(s.layout.InstallStatePath())
	if err != nil {
		s.log.WithError(err).Warn("install state unreadable; overwriting")
		state = installState{}
	}
	state.CodexImage = s.settings.CodexImage
	state.LastRebuild = ""
	if err := saveInstallState(s.layout.InstallStatePath(), state, s.now()); err != nil {
		s.log.WithError(err).Warn("could not record rebuild")
	}
	return 0, nil
}
