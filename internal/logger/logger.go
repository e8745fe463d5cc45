package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logrus.Logger for the given environment. An explicit level
// (e.g. "warn") overrides the environment default.
func New(env, level string) *logrus.Logger {
	return newWithOutput(os.Stdout, env, level)
}

// Discard returns a logger that drops everything. Used by tests and tools.
func Discard() *logrus.Logger {
	return newWithOutput(io.Discard, "", "")
}

func newWithOutput(w io.Writer, env, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(parseLevel(env, level))
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return log
}

func parseLevel(env, level string) logrus.Level {
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			return lvl
		}
	}
	switch strings.ToLower(env) {
	case "local", "dev":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
