package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
)

// VolumeFile addresses one file inside a named volume. The volume is
// mounted at MountDir in a throwaway container created from Image; the
// container is never started.
type VolumeFile struct {
	Volume   string
	MountDir string
	Name     string
	Image    string
	Mode     int64
	UID      int
	GID      int
}

func (f VolumeFile) path() string {
	return path.Join(f.MountDir, f.Name)
}

func (f VolumeFile) validate() error {
	switch {
	case strings.TrimSpace(f.Volume) == "":
		return errors.New("volume name required")
	case strings.TrimSpace(f.MountDir) == "" || strings.TrimSpace(f.Name) == "":
		return errors.New("volume file path required")
	case strings.TrimSpace(f.Image) == "":
		return errors.New("helper image required")
	}
	return nil
}

const mountDirMode = 0o700

// WriteVolumeFile replaces the file with data.
func (c *Client) WriteVolumeFile(ctx context.Context, f VolumeFile, data []byte) error {
	if err := f.validate(); err != nil {
		return err
	}
	buf, err := volumeArchive(f, data, time.Now())
	if err != nil {
		return err
	}
	return c.withVolumeContainer(ctx, f, func(id string) error {
		return c.api.CopyToContainer(ctx, id, f.MountDir, buf, types.CopyToContainerOptions{
			AllowOverwriteDirWithFile: true,
		})
	})
}

// volumeArchive is the tar stream extracted at MountDir. Its leading "./"
// entry hands the volume root to UID:GID, since a fresh volume first
// mounted through an image without that directory is root-owned.
func volumeArchive(f VolumeFile, data []byte, now time.Time) (*bytes.Buffer, error) {
	mode := f.Mode
	if mode == 0 {
		mode = 0o600
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	headers := []*tar.Header{
		{
			Typeflag: tar.TypeDir,
			Name:     "./",
			Mode:     mountDirMode,
			Uid:      f.UID,
			Gid:      f.GID,
			ModTime:  now,
		},
		{
			Typeflag: tar.TypeReg,
			Name:     f.Name,
			Mode:     mode,
			Size:     int64(len(data)),
			Uid:      f.UID,
			Gid:      f.GID,
			ModTime:  now,
		},
	}
	for _, hdr := range headers {
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
	}
	if _, err := tw.Write(data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// ReadVolumeFile returns the file contents, or an error wrapping
// fs.ErrNotExist when the file is absent.
func (c *Client) ReadVolumeFile(ctx context.Context, f VolumeFile) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	var out []byte
	err := c.withVolumeContainer(ctx, f, func(id string) error {
		reader, _, err := c.api.CopyFromContainer(ctx, id, f.path())
		if err != nil {
			if client.IsErrNotFound(err) {
				return fmt.Errorf("%s in volume %s: %w", f.Name, f.Volume, fs.ErrNotExist)
			}
			return err
		}
		defer reader.Close()
		tr := tar.NewReader(reader)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return fmt.Errorf("%s in volume %s: %w", f.Name, f.Volume, fs.ErrNotExist)
			}
			if err != nil {
				return err
			}
			if hdr.Typeflag != tar.TypeReg {
				continue
			}
			out, err = io.ReadAll(tr)
			return err
		}
	})
	return out, err
}

func (c *Client) withVolumeContainer(ctx context.Context, f VolumeFile, fn func(id string) error) error {
	resp, err := c.api.ContainerCreate(ctx,
		&container.Config{
			Image:  f.Image,
			Cmd:    []string{"true"},
			Labels: map[string]string{"agent-switcher.helper": "volume-file"},
		},
		&container.HostConfig{
			Mounts: []mount.Mount{{
				Type:   mount.TypeVolume,
				Source: f.Volume,
				Target: f.MountDir,
			}},
		},
		nil, nil, "")
	if err != nil {
		return err
	}
	defer func() {
		cleanup, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.api.ContainerRemove(cleanup, resp.ID, container.RemoveOptions{Force: true})
	}()
	return fn(resp.ID)
}
