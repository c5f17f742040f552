// Package runner starts external processes with inherited stdio. It is the
// only place that spawns the container runtime or native tool binaries.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const deadlineExitCode = 124

type Spec struct {
	Name string
	Args []string
	// Env is appended to the inherited environment.
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (s Spec) String() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

type Runner struct {
	log log.FieldLogger
}

func New(logger log.FieldLogger) *Runner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Runner{log: logger}
}

// Run executes spec to completion. A non-zero exit is reported through the
// returned code, not as an error; the error is set only when the process
// could not be started or the context expired.
func (r *Runner) Run(ctx context.Context, spec Spec) (int, error) {
	cmd := r.command(ctx, spec)
	cmd.Stdin = firstReader(spec.Stdin, os.Stdin)
	cmd.Stdout = firstWriter(spec.Stdout, os.Stdout)
	cmd.Stderr = firstWriter(spec.Stderr, os.Stderr)
	return exitStatus(ctx, cmd.Run())
}

// Stream is Run that additionally feeds every complete output line to
// onLine. When the caller's stdin is a terminal the child gets a pty so
// interactive flows keep working.
func (r *Runner) Stream(ctx context.Context, spec Spec, onLine func(string)) (int, error) {
	if onLine == nil {
		return r.Run(ctx, spec)
	}
	if spec.Stdin == nil && StdinIsTerminal() {
		return r.streamPTY(ctx, spec, onLine)
	}
	return r.streamPipes(ctx, spec, onLine)
}

func (r *Runner) streamPTY(ctx context.Context, spec Spec, onLine func(string)) (int, error) {
	cmd := r.command(ctx, spec)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, err
	}
	defer ptmx.Close()
	_ = pty.InheritSize(os.Stdin, ptmx)

	fd := int(os.Stdin.Fd())
	if state, rawErr := term.MakeRaw(fd); rawErr == nil {
		defer func() { _ = term.Restore(fd, state) }()
	}

	done := make(chan struct{})
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		copyInput(ptmx, os.Stdin, done)
	}()

	lines := NewLineWriter(onLine)
	out := io.MultiWriter(firstWriter(spec.Stdout, os.Stdout), lines)
	// Reading the master returns EIO once the child exits.
	_, _ = io.Copy(out, ptmx)
	lines.Flush()
	waitErr := cmd.Wait()
	close(done)
	<-copied
	return exitStatus(ctx, waitErr)
}

func (r *Runner) streamPipes(ctx context.Context, spec Spec, onLine func(string)) (int, error) {
	cmd := r.command(ctx, spec)
	cmd.Stdin = firstReader(spec.Stdin, os.Stdin)

	var mu sync.Mutex
	guarded := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		onLine(line)
	}
	stdoutLines := NewLineWriter(guarded)
	stderrLines := NewLineWriter(guarded)
	cmd.Stdout = io.MultiWriter(firstWriter(spec.Stdout, os.Stdout), stdoutLines)
	cmd.Stderr = io.MultiWriter(firstWriter(spec.Stderr, os.Stderr), stderrLines)

	err := cmd.Run()
	stdoutLines.Flush()
	stderrLines.Flush()
	return exitStatus(ctx, err)
}

func (r *Runner) command(ctx context.Context, spec Spec) *exec.Cmd {
	r.log.WithField("cmd", spec.String()).Debug("exec")
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	return cmd
}

func exitStatus(ctx context.Context, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return deadlineExitCode, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func firstReader(r io.Reader, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func firstWriter(w io.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
