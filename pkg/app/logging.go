package app

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log output formats accepted by NewLogger
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger builds the logger shared by every build step
func NewLogger(level, format string) (*logrus.Logger, error) {
	return newLogger(os.Stderr, level, format)
}

func newLogger(out io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, NewError(ErrCodeConfiguration, "invalid log level", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", LogFormatText:
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, Errorf(ErrCodeConfiguration, "unknown log format %q (want %s or %s)", format, LogFormatText, LogFormatJSON)
	}

	return logger, nil
}

// DiscardLogger returns a logger that drops everything, for library callers and tests
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
