package logger

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes entries through a logrus.Logger
type LogrusLogger struct {
	Logger        *logrus.Logger
	LogLevel      LogLevel
	SlowThreshold time.Duration
}

func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{Logger: logger, LogLevel: config.LogLevel, SlowThreshold: config.SlowThreshold}
}

// NewLogrusLoggerWithConfig text formatted logger on stdout
func NewLogrusLoggerWithConfig(config Config) Interface {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(LogrusLevel(config.LogLevel))
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   config.Colorful,
		DisableColors: !config.Colorful,
		FullTimestamp: true,
	})
	return NewLogrusLogger(logger, config)
}

func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Info, msg, data))
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Warn, msg, data))
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Error, msg, data))
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if e, ok := traceEntry(ctx, l.LogLevel, l.SlowThreshold, begin, fc, err); ok {
		l.write(ctx, e)
	}
}

func (l *LogrusLogger) write(ctx context.Context, e entry) {
	if !enabled(l.LogLevel, e.level) {
		return
	}

	fields := make(logrus.Fields, len(e.fields)+1)
	for _, field := range e.fields {
		fields[field.Key] = field.Value
	}
	if e.err != nil {
		fields[logrus.ErrorKey] = e.err.Error()
	}

	le := l.Logger.WithFields(fields)
	if ctx != nil {
		le = le.WithContext(ctx)
	}
	le.Log(LogrusLevel(e.level), e.message)
}

// LogrusLevel logrus level of level, Silent only lets panics through
func LogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case Silent:
		return logrus.PanicLevel
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}
