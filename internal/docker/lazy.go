package docker

import (
	"context"
	"sync"
	"time"
)

// Lazy connects on first use so commands that never touch the engine work
// without a running daemon.
type Lazy struct {
	once   sync.Once
	client *Client
	err    error
}

func (l *Lazy) get() (*Client, error) {
	l.once.Do(func() {
		l.client, l.err = NewClient()
	})
	return l.client, l.err
}

func (l *Lazy) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

func (l *Lazy) ImageExists(ctx context.Context, ref string) (bool, error) {
	c, err := l.get()
	if err != nil {
		return false, err
	}
	return c.ImageExists(ctx, ref)
}

func (l *Lazy) ContainersPublishing(ctx context.Context, port int) ([]Container, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.ContainersPublishing(ctx, port)
}

func (l *Lazy) StopContainer(ctx context.Context, id string, timeout time.Duration) error {
	c, err := l.get()
	if err != nil {
		return err
	}
	return c.StopContainer(ctx, id, timeout)
}

func (l *Lazy) EnsureVolume(ctx context.Context, name string, labels map[string]string) (string, error) {
	c, err := l.get()
	if err != nil {
		return "", err
	}
	return c.EnsureVolume(ctx, name, labels)
}

func (l *Lazy) WriteVolumeFile(ctx context.Context, f VolumeFile, data []byte) error {
	c, err := l.get()
	if err != nil {
		return err
	}
	return c.WriteVolumeFile(ctx, f, data)
}

func (l *Lazy) ReadVolumeFile(ctx context.Context, f VolumeFile) ([]byte, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.ReadVolumeFile(ctx, f)
}

func (l *Lazy) VolumesLabeled(ctx context.Context, labels map[string]string) ([]string, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.VolumesLabeled(ctx, labels)
}
