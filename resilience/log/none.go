package log

// NoneLogger discards every log entry. It is the null-object implementation
// used as a default when no logger is injected, and in tests.
type NoneLogger struct{}

// Info implements the Info Logger interface function.
func (l *NoneLogger) Info(args ...any) {}

// Infof implements the Infof Logger interface function.
func (l *NoneLogger) Infof(format string, args ...any) {}

// Infoln implements the Infoln Logger interface function.
func (l *NoneLogger) Infoln(args ...any) {}

// Error implements the Error Logger interface function.
func (l *NoneLogger) Error(args ...any) {}

// Errorf implements the Errorf Logger interface function.
func (l *NoneLogger) Errorf(format string, args ...any) {}

// Errorln implements the Errorln Logger interface function.
func (l *NoneLogger) Errorln(args ...any) {}

// Warn implements the Warn Logger interface function.
func (l *NoneLogger) Warn(args ...any) {}

// Warnf implements the Warnf Logger interface function.
func (l *NoneLogger) Warnf(format string, args ...any) {}

// Warnln implements the Warnln Logger interface function.
func (l *NoneLogger) Warnln(args ...any) {}

// Debug implements the Debug Logger interface function.
func (l *NoneLogger) Debug(args ...any) {}

// Debugf implements the Debugf Logger interface function.
func (l *NoneLogger) Debugf(format string, args ...any) {}

// Debugln implements the Debugln Logger interface function.
func (l *NoneLogger) Debugln(args ...any) {}

// Fatal implements the Fatal Logger interface function.
func (l *NoneLogger) Fatal(args ...any) {}

// Fatalf implements the Fatalf Logger interface function.
func (l *NoneLogger) Fatalf(format string, args ...any) {}

// Fatalln implements the Fatalln Logger interface function.
func (l *NoneLogger) Fatalln(args ...any) {}

// WithFields implements the WithFields Logger interface function.
//
//nolint:ireturn
func (l *NoneLogger) WithFields(fields ...any) Logger { return l }

// WithDefaultMessageTemplate implements the Logger interface function.
//
//nolint:ireturn
func (l *NoneLogger) WithDefaultMessageTemplate(message string) Logger { return l }

// Sync is a no-op and always returns nil.
func (l *NoneLogger) Sync() error { return nil }
