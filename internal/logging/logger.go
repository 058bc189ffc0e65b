// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
)

// NewLogger returns a logrus logger writing to stdout.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	return NewLoggerWithOutput(cfg, os.Stdout)
}

// NewLoggerWithOutput returns a logrus logger writing to out. Unknown levels fall
// back to info; any format other than "text" is JSON.
func NewLoggerWithOutput(cfg domain.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
