// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup points the standard logger at w (stderr when nil) and applies level.
// An unknown level keeps info and is reported once.
func Setup(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.StandardLogger()
	logger.SetOutput(w)
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(log.InfoLevel)

	level = strings.TrimSpace(level)
	if level == "" {
		return logger
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		logger.Warnf("invalid log level %s, defaulting to info", level)
		return logger
	}
	logger.SetLevel(parsed)
	return logger
}
