package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// New builds the process logger. Unknown levels fall back to info.
func New(appName, level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = "info"
	}
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to INFO", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if appName != "" {
		logger.AddHook(&appNameHook{appName: appName})
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
