package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before InitLogger runs so tests and tools get a sane default.
var Log = logrus.New()

// InitLogger configures Log and the logrus standard logger with the same output,
// formatter and level, so package-level logrus calls follow the configured settings.
func InitLogger(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	// Output to stdout instead of the default stderr
	Log.Out = os.Stdout
	logrus.SetOutput(os.Stdout)

	// Set JSON formatter for structured logging
	Log.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetFormatter(&logrus.JSONFormatter{})

	Log.SetLevel(lvl)
	logrus.SetLevel(lvl)
}
