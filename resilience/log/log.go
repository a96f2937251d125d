// Package log defines the logging facade used across the library.
//
// Components depend only on the Logger interface; applications pick an
// implementation (ZapLogger in services, GoLogger for small tools,
// NoneLogger in tests) and inject it at construction time.
package log

import (
	"fmt"
	"strings"
)

// Logger is the common interface for logging implementations.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	// WithFields returns a derived logger that attaches the given
	// key/value pairs to every entry.
	WithFields(fields ...any) Logger

	// WithDefaultMessageTemplate returns a derived logger that prefixes
	// every entry with the given template.
	WithDefaultMessageTemplate(message string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// LogLevel represents the severity of a log entry. Lower numeric values
// indicate higher severity; a logger's Level acts as a verbosity ceiling.
type LogLevel uint8

const (
	FatalLevel LogLevel = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case FatalLevel:
		return "FATAL"
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARN"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a textual level into a LogLevel constant.
func ParseLevel(lvl string) (LogLevel, error) {
	switch strings.ToLower(lvl) {
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}

	var l LogLevel

	return l, fmt.Errorf("not a valid LogLevel: %q", lvl)
}
