package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the go.uber.org/zap implementation of the Logger interface.
type ZapLogger struct {
	Logger *zap.SugaredLogger
	Level  LogLevel
}

// NewZapLogger builds a production-profile zap logger wrapped in the Logger
// interface. Level selects the verbosity ceiling.
func NewZapLogger(level LogLevel) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{Logger: built.Sugar(), Level: level}, nil
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case DebugLevel:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Info implements the Info Logger interface function.
func (l *ZapLogger) Info(args ...any) { l.Logger.Info(sanitizeLogArgs(args)...) }

// Infof implements the Infof Logger interface function.
func (l *ZapLogger) Infof(format string, args ...any) {
	l.Logger.Infof(sanitizeLogString(format), args...)
}

// Infoln implements the Infoln Logger interface function.
func (l *ZapLogger) Infoln(args ...any) { l.Logger.Infoln(sanitizeLogArgs(args)...) }

// Error implements the Error Logger interface function.
func (l *ZapLogger) Error(args ...any) { l.Logger.Error(sanitizeLogArgs(args)...) }

// Errorf implements the Errorf Logger interface function.
func (l *ZapLogger) Errorf(format string, args ...any) {
	l.Logger.Errorf(sanitizeLogString(format), args...)
}

// Errorln implements the Errorln Logger interface function.
func (l *ZapLogger) Errorln(args ...any) { l.Logger.Errorln(sanitizeLogArgs(args)...) }

// Warn implements the Warn Logger interface function.
func (l *ZapLogger) Warn(args ...any) { l.Logger.Warn(sanitizeLogArgs(args)...) }

// Warnf implements the Warnf Logger interface function.
func (l *ZapLogger) Warnf(format string, args ...any) {
	l.Logger.Warnf(sanitizeLogString(format), args...)
}

// Warnln implements the Warnln Logger interface function.
func (l *ZapLogger) Warnln(args ...any) { l.Logger.Warnln(sanitizeLogArgs(args)...) }

// Debug implements the Debug Logger interface function.
func (l *ZapLogger) Debug(args ...any) { l.Logger.Debug(sanitizeLogArgs(args)...) }

// Debugf implements the Debugf Logger interface function.
func (l *ZapLogger) Debugf(format string, args ...any) {
	l.Logger.Debugf(sanitizeLogString(format), args...)
}

// Debugln implements the Debugln Logger interface function.
func (l *ZapLogger) Debugln(args ...any) { l.Logger.Debugln(sanitizeLogArgs(args)...) }

// Fatal implements the Fatal Logger interface function.
func (l *ZapLogger) Fatal(args ...any) { l.Logger.Fatal(sanitizeLogArgs(args)...) }

// Fatalf implements the Fatalf Logger interface function.
func (l *ZapLogger) Fatalf(format string, args ...any) {
	l.Logger.Fatalf(sanitizeLogString(format), args...)
}

// Fatalln implements the Fatalln Logger interface function.
func (l *ZapLogger) Fatalln(args ...any) { l.Logger.Fatalln(sanitizeLogArgs(args)...) }

// WithFields implements the WithFields Logger interface function.
//
//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{
		Logger: l.Logger.With(sanitizeLogArgs(fields)...),
		Level:  l.Level,
	}
}

// WithDefaultMessageTemplate implements the Logger interface function.
//
//nolint:ireturn
func (l *ZapLogger) WithDefaultMessageTemplate(message string) Logger {
	return &ZapLogger{
		Logger: l.Logger.Named(sanitizeLogString(message)),
		Level:  l.Level,
	}
}

// Sync flushes buffered entries to the underlying sink.
func (l *ZapLogger) Sync() error {
	return l.Logger.Sync()
}
