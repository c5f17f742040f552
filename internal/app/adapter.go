package app

import (
	"context"

	"agent-switcher/internal/docker"
	"agent-switcher/internal/runner"
)

// ProcessRunner spawns the container runtime or a native binary.
type ProcessRunner interface {
	Run(ctx context.Context, spec runner.Spec) (int, error)
	Stream(ctx context.Context, spec runner.Spec, onLine func(string)) (int, error)
}

// VolumeStore is the container runtime as seen by the credential lifecycle.
type VolumeStore interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	EnsureVolume(ctx context.Context, name string, labels map[string]string) (string, error)
	WriteVolumeFile(ctx context.Context, f docker.VolumeFile, data []byte) error
	ReadVolumeFile(ctx context.Context, f docker.VolumeFile) ([]byte, error)
	VolumesLabeled(ctx context.Context, labels map[string]string) ([]string, error)
}

type PortChecker interface {
	EnsureFree(ctx context.Context, port int) error
}

type URLOpener interface {
	Open(account, url string) error
}
