package runner

import (
	"sort"
	"strings"
)

const DockerBinary = "docker"

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ContainerRun describes one `docker run --rm` invocation.
type ContainerRun struct {
	Image       string
	Command     []string
	Mounts      []Mount
	Env         []string
	Labels      map[string]string
	Workdir     string
	Network     string
	User        string
	Interactive bool
	TTY         bool
}

func DockerRunArgs(c ContainerRun) []string {
	args := []string{"run", "--rm"}
	switch {
	case c.Interactive && c.TTY:
		args = append(args, "-it")
	case c.Interactive:
		args = append(args, "-i")
	}
	if c.Network != "" {
		args = append(args, "--network", c.Network)
	}
	if c.User != "" {
		args = append(args, "--user", c.User)
	}
	keys := make([]string, 0, len(c.Labels))
	for k := range c.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+c.Labels[k])
	}
	for _, m := range c.Mounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	for _, kv := range c.Env {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		args = append(args, "-e", kv)
	}
	if c.Workdir != "" {
		args = append(args, "-w", c.Workdir)
	}
	args = append(args, c.Image)
	return append(args, c.Command...)
}

// DockerSpec wraps docker arguments into a process spec.
func DockerSpec(args []string) Spec {
	return Spec{Name: DockerBinary, Args: args}
}
