//go:build unix

package runner

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const inputPollMillis = 100

// copyInput forwards src to dst until done is closed or src ends. It only
// reads after poll reports input, so nothing is consumed from src once done
// is closed and the next process inheriting stdin sees every byte.
func copyInput(dst io.Writer, src *os.File, done <-chan struct{}) {
	fds := []unix.PollFd{{Fd: int32(src.Fd()), Events: unix.POLLIN}}
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, err := unix.Poll(fds, inputPollMillis)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return
		}
		if n == 0 || fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		read, err := src.Read(buf)
		if read > 0 {
			if _, werr := dst.Write(buf[:read]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
