package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioage-mcp-server/internal/domain"
)

func TestNewLoggerWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(domain.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("assessment_id", "a-1").Info("Assessment stored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Assessment stored", entry["msg"])
	assert.Equal(t, "a-1", entry["assessment_id"])
}

func TestNewLoggerWithOutput_TextAndFallbackLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(domain.LoggingConfig{Level: "loud", Format: "TEXT"}, &buf)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	_, isText := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}
