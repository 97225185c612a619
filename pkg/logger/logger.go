package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var (
	// Log is the logger
	Log *logrus.Logger
)

func init() {
	Log = logrus.New()
	Log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
}

// SetLevel sets the log level
func SetLevel(level string) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		Log.SetLevel(logrus.InfoLevel)
		return
	}

	Log.SetLevel(l)
}

// SetOutput redirects log output, mainly for daemonized runs and tests.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// WithComponent tags entries with the emitting component.
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
