// internal/logutil/logutil.go
package logutil

import (
	"io"
	"os"

	"github.com/pion/logging"
)

// silent is used when a component is built without a LoggerFactory.
var silent = &logging.DefaultLoggerFactory{
	Writer:          io.Discard,
	DefaultLogLevel: logging.LogLevelDisabled,
	ScopeLevels:     map[string]logging.LogLevel{},
}

// Scoped returns a leveled logger for scope.
// A nil factory yields a logger that discards everything.
func Scoped(f logging.LoggerFactory, scope string) logging.LeveledLogger {
	if f == nil {
		return silent.NewLogger(scope)
	}
	return f.NewLogger(scope)
}

// NewFactory builds the process logger factory.
// debug lowers the default level to Debug; PION_LOG_* env overrides still apply per scope.
func NewFactory(debug bool) *logging.DefaultLoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	f.Writer = os.Stderr
	if debug {
		f.DefaultLogLevel = logging.LogLevelDebug
	} else if f.DefaultLogLevel < logging.LogLevelInfo {
		f.DefaultLogLevel = logging.LogLevelInfo
	}
	return f
}
