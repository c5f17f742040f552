package logging

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "debug")
	t.Cleanup(func() { Setup(nil, "info") })

	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	logger.WithField("account", "work").Debug("probe")
	assert.Contains(t, buf.String(), "account=work")
}

func TestSetupInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "loud")
	t.Cleanup(func() { Setup(nil, "info") })

	assert.Equal(t, log.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "invalid log level loud")
}
