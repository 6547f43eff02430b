// Package logger wraps charmbracelet/log with an extra Trace level and the
// string-valued log level configuration used by cachekeep.
package logger

import (
	charm "github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// ErrInvalidLogLevel indicates an unrecognized log level string.
var ErrInvalidLogLevel = errors.New("invalid log level. Supported log levels are Trace, Debug, Info, Warning, Off")

// Level is the numeric level type of the underlying charm logger.
type Level = charm.Level

// Log levels. TraceLevel sits below charm's DebugLevel so trace output can
// be enabled independently of debug.
const (
	TraceLevel Level = charm.DebugLevel - 1
	DebugLevel Level = charm.DebugLevel
	InfoLevel  Level = charm.InfoLevel
	WarnLevel  Level = charm.WarnLevel
	ErrorLevel Level = charm.ErrorLevel
	FatalLevel Level = charm.FatalLevel
)

// LogLevel is the string form of a log level as it appears in configuration.
type LogLevel string

const (
	LogLevelOff     LogLevel = "Off"
	LogLevelTrace   LogLevel = "Trace"
	LogLevelDebug   LogLevel = "Debug"
	LogLevelInfo    LogLevel = "Info"
	LogLevelWarning LogLevel = "Warning"
)

// ParseLogLevel converts a configuration string into a LogLevel.
// An empty string defaults to Info.
func ParseLogLevel(logLevel string) (LogLevel, error) {
	if logLevel == "" {
		return LogLevelInfo, nil
	}

	switch LogLevel(logLevel) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelOff:
		return LogLevel(logLevel), nil
	default:
		return "", errUtils.Build(ErrInvalidLogLevel).WithContext("level", logLevel).Err()
	}
}

// CharmLevel maps a LogLevel to the numeric level of the charm logger.
func (l LogLevel) CharmLevel() Level {
	switch l {
	case LogLevelTrace:
		return TraceLevel
	case LogLevelDebug:
		return DebugLevel
	case LogLevelWarning:
		return WarnLevel
	case LogLevelOff:
		return FatalLevel + 1
	default:
		return InfoLevel
	}
}

// Logger wraps a charm logger and adds trace-level logging.
type Logger struct {
	*charm.Logger
}

// NewLogger wraps an existing charm logger. A nil argument wraps charm's
// default logger.
func NewLogger(l *charm.Logger) *Logger {
	if l == nil {
		l = charm.Default()
	}
	return &Logger{Logger: l}
}

// Trace logs a message at TraceLevel.
func (l *Logger) Trace(msg interface{}, keyvals ...interface{}) {
	l.Logger.Log(TraceLevel, msg, keyvals...)
}

// GetLevelString returns the current level as a lowercase string.
// charm does not know about TraceLevel, so it is handled here.
func (l *Logger) GetLevelString() string {
	if l.GetLevel() == TraceLevel {
		return "trace"
	}
	return l.GetLevel().String()
}
