// Package docker talks to the engine API for the bookkeeping operations:
// image presence, port ownership, volumes and per-volume files. Interactive
// tool sessions go through the docker CLI via the runner package instead.
package docker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const pingTimeout = 2 * time.Second

type Client struct {
	api *client.Client
}

// Container is the subset of container state callers care about.
type Container struct {
	ID    string
	Name  string
	Image string
	State string
}

func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return &Client{api: cli}, nil
}

func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}

func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	if strings.TrimSpace(ref) == "" {
		return false, errors.New("image reference required")
	}
	_, _, err := c.api.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ContainersPublishing lists running containers that publish port on the
// host (tcp).
func (c *Client) ContainersPublishing(ctx context.Context, port int) ([]Container, error) {
	if port <= 0 {
		return nil, errors.New("port required")
	}
	published, err := nat.NewPort("tcp", strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	list, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("publish", string(published))),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Container, 0, len(list))
	for _, item := range list {
		name := ""
		if len(item.Names) > 0 {
			name = strings.TrimPrefix(item.Names[0], "/")
		}
		out = append(out, Container{ID: item.ID, Name: name, Image: item.Image, State: item.State})
	}
	return out, nil
}

func (c *Client) StopContainer(ctx context.Context, id string, timeout time.Duration) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("container id required")
	}
	if timeout <= 0 {
		return c.api.ContainerStop(ctx, id, container.StopOptions{})
	}
	seconds := int(timeout.Seconds())
	return c.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &seconds})
}

func (c *Client) EnsureVolume(ctx context.Context, name string, labels map[string]string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("volume name required")
	}
	exists, err := c.VolumeExists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		return name, nil
	}
	resp, err := c.api.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Labels: labels,
	})
	if err != nil {
		return "", err
	}
	return resp.Name, nil
}

func (c *Client) VolumeExists(ctx context.Context, name string) (bool, error) {
	list, err := c.api.VolumeList(ctx, volume.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return false, err
	}
	// The name filter matches substrings.
	for _, item := range list.Volumes {
		if item.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// VolumesLabeled returns the names of volumes carrying every given label.
func (c *Client) VolumesLabeled(ctx context.Context, labels map[string]string) ([]string, error) {
	args := filters.NewArgs()
	for key, val := range labels {
		if key == "" || val == "" {
			continue
		}
		args.Add("label", key+"="+val)
	}
	list, err := c.api.VolumeList(ctx, volume.ListOptions{Filters: args})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Volumes))
	for _, item := range list.Volumes {
		names = append(names, item.Name)
	}
	return names, nil
}
