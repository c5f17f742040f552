// Package portguard checks that a loopback port is free before a login flow
// starts a callback listener on it.
package portguard

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"agent-switcher/internal/docker"
)

// LoginCallbackPort is the fixed port the codex browser login listens on.
const LoginCallbackPort = 1455

const stopTimeout = 5 * time.Second

// ContainerAPI is the part of the container runtime the guard needs.
type ContainerAPI interface {
	ContainersPublishing(ctx context.Context, port int) ([]docker.Container, error)
	StopContainer(ctx context.Context, id string, timeout time.Duration) error
}

// ListenFunc binds a listener; tests replace it.
type ListenFunc func(network, address string) (net.Listener, error)

type Guard struct {
	Containers ContainerAPI
	AutoStop   bool
	Listen     ListenFunc
	Log        log.FieldLogger
}

// ConflictError names whatever holds the port and how to free it.
type ConflictError struct {
	Port       int
	Containers []docker.Container
	Err        error
}

func (e *ConflictError) Error() string {
	if len(e.Containers) > 0 {
		ids := make([]string, 0, len(e.Containers))
		for _, c := range e.Containers {
			ids = append(ids, c.ID[:min(12, len(c.ID))])
		}
		return fmt.Sprintf("port %d is published by container(s) %s; stop them with `docker stop %s` or set AGENT_SWITCHER_AUTO_STOP=1",
			e.Port, describe(e.Containers), strings.Join(ids, " "))
	}
	msg := fmt.Sprintf("port %d is in use by another process", e.Port)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "; free the port before retrying the login"
}

func (e *ConflictError) Unwrap() error { return e.Err }

// EnsureFree returns nil when port can be bound on loopback. Containers
// publishing the port are checked first since the callback listener runs
// outside the runtime's network namespace.
func (g *Guard) EnsureFree(ctx context.Context, port int) error {
	logger := g.logger().WithField("port", port)
	if g.Containers != nil {
		list, err := g.Containers.ContainersPublishing(ctx, port)
		if err != nil {
			return fmt.Errorf("list containers publishing port %d: %w", port, err)
		}
		if len(list) > 0 {
			if !g.AutoStop {
				return &ConflictError{Port: port, Containers: list}
			}
			for _, c := range list {
				logger.WithField("container", describe([]docker.Container{c})).Warn("stopping container holding login port")
				if err := g.Containers.StopContainer(ctx, c.ID, stopTimeout); err != nil {
					return fmt.Errorf("stop container %s: %w", c.ID, err)
				}
			}
		}
	}

	listen := g.Listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return &ConflictError{Port: port, Err: err}
	}
	_ = ln.Close()
	logger.Debug("port free")
	return nil
}

func (g *Guard) logger() log.FieldLogger {
	if g.Log != nil {
		return g.Log
	}
	return log.StandardLogger()
}

func describe(list []docker.Container) string {
	parts := make([]string, 0, len(list))
	for _, c := range list {
		id := c.ID[:min(12, len(c.ID))]
		if c.Name != "" {
			parts = append(parts, c.Name+" ("+id+")")
		} else {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, ", ")
}
