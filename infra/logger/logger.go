package logger

import (
	"io"
	"os"
	"strings"

	corelogger "github.com/kilianp07/dispatchsim/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. LOG_BACKEND selects the
// implementation ("zerolog" by default, "logrus" for plain text), APP_ENV=dev
// switches to console output and LOG_LEVEL sets the minimum level.
func New(component string) Logger {
	return NewWithWriter(component, os.Stdout)
}

// NewWithWriter is New writing to w.
func NewWithWriter(component string, w io.Writer) Logger {
	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch strings.ToLower(os.Getenv("LOG_BACKEND")) {
	case "logrus":
		return NewLogrusLogger(component, w, level)
	default:
		return NewZerologLogger(component, w, level)
	}
}
