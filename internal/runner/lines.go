package runner

import (
	"bytes"
	"strings"
)

const maxPendingLine = 64 * 1024

// LineWriter is an io.Writer that calls emit once per complete line.
// Carriage returns are dropped so pty output (\r\n) reads like pipe output.
type LineWriter struct {
	buf  []byte
	emit func(string)
}

func NewLineWriter(emit func(string)) *LineWriter {
	return &LineWriter{emit: emit}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.buf[:idx]), "\r"))
		w.buf = w.buf[idx+1:]
	}
	if len(w.buf) > maxPendingLine {
		w.emit(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits a trailing partial line, if any.
func (w *LineWriter) Flush() {
	if len(w.buf) == 0 {
		return
	}
	w.emit(strings.TrimRight(string(w.buf), "\r"))
	w.buf = nil
}
