package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriterSplitsAndFlushes(t *testing.T) {
	var got []string
	w := NewLineWriter(func(line string) { got = append(got, line) })

	_, _ = w.Write([]byte("first\r\nsec"))
	_, _ = w.Write([]byte("ond\nthird"))
	assert.Equal(t, []string{"first", "second"}, got)

	w.Flush()
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestDockerRunArgs(t *testing.T) {
	args := DockerRunArgs(ContainerRun{
		Image:       "img:1",
		Command:     []string{"codex", "login"},
		Mounts:      []Mount{{Source: "vol", Target: "/home/codex/.codex"}, {Source: "/src", Target: "/work", ReadOnly: true}},
		Env:         []string{"CODEX_HOME=/home/codex/.codex", " "},
		Labels:      map[string]string{"b": "2", "a": "1"},
		Workdir:     "/work",
		Network:     "host",
		User:        "1000:1000",
		Interactive: true,
		TTY:         true,
	})
	want := []string{
		"run", "--rm", "-it", "--network", "host", "--user", "1000:1000",
		"--label", "a=1", "--label", "b=2",
		"-v", "vol:/home/codex/.codex", "-v", "/src:/work:ro",
		"-e", "CODEX_HOME=/home/codex/.codex",
		"-w", "/work",
		"img:1", "codex", "login",
	}
	assert.Equal(t, want, args)
}

func TestRunReportsExitCodeWithoutError(t *testing.T) {
	r := New(nil)
	var out bytes.Buffer
	code, err := r.Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "echo hi; exit 3"}, Stdin: strings.NewReader(""), Stdout: &out})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hi\n", out.String())
}

func TestRunMissingBinaryIsError(t *testing.T) {
	r := New(nil)
	_, err := r.Run(context.Background(), Spec{Name: "definitely-not-a-binary-xyz", Stdin: strings.NewReader("")})
	assert.Error(t, err)
}

func TestStreamPipesFeedsLines(t *testing.T) {
	r := New(nil)
	var out bytes.Buffer
	var lines []string
	code, err := r.Stream(context.Background(), Spec{
		Name:   "sh",
		Args:   []string{"-c", "echo one; echo two 1>&2; printf three"},
		Env:    []string{"EXTRA=1"},
		Stdin:  strings.NewReader(""),
		Stdout: &out,
		Stderr: &out,
	}, func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, lines)
}
