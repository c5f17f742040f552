//go:build !unix

package runner

import (
	"io"
	"os"
)

// copyInput forwards src to dst until done is closed. Without poll the
// pending read cannot be abandoned and the copier outlives the call.
func copyInput(dst io.Writer, src *os.File, done <-chan struct{}) {
	go func() { _, _ = io.Copy(dst, src) }()
	<-done
}
