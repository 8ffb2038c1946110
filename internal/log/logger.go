// Package log provides structured component loggers for unichat.
//
// Component loggers are usually created once at package level, so output and
// level live behind the shared writer and zerolog's global level. Configure
// and SetLevel therefore affect loggers created before they are called.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	output     io.Writer = consoleWriter(os.Stderr)
	outputLock sync.RWMutex

	logger = zerolog.New(sharedWriter{}).With().Timestamp().Logger()
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// sharedWriter forwards to the currently configured output.
type sharedWriter struct{}

func (sharedWriter) Write(p []byte) (int, error) {
	outputLock.RLock()
	defer outputLock.RUnlock()
	return output.Write(p)
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
}

// Configure sets the destination, format ("json" or "console") and level.
func Configure(out io.Writer, format, level string) {
	if out == nil {
		out = os.Stderr
	}
	if strings.ToLower(format) != "json" {
		out = consoleWriter(out)
	}
	outputLock.Lock()
	output = out
	outputLock.Unlock()
	SetLevel(level)
}

// SetLevel sets the global log level at runtime
func SetLevel(levelStr string) {
	zerolog.SetGlobalLevel(parseLogLevel(levelStr))
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the process logger.
func Logger() zerolog.Logger {
	return logger
}

// GetLogger returns a sub-logger tagged with the component name.
func GetLogger(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
