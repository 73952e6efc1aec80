// Package observability wires logging, metrics, tracing, and health probes.
package observability

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger: JSON output and the
// given level. Unknown levels fall back to info.
func SetupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(parseLevel(level))
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
