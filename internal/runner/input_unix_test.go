//go:build unix

package runner

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCopyInputStopsAndLeavesLaterInput(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var dst syncBuffer
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		copyInput(&dst, r, done)
	}()

	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return dst.String() == "abc" }, 2*time.Second, 10*time.Millisecond)

	close(done)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("copier did not stop")
	}

	_, err = w.Write([]byte("next"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "next", string(rest))
	assert.Equal(t, "abc", dst.String())
}

func TestCopyInputEndsAtEOF(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	var dst syncBuffer
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		copyInput(&dst, r, make(chan struct{}))
	}()
	_, err = w.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("copier did not stop at EOF")
	}
	assert.Equal(t, "tail", dst.String())
}
