package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes entries through a zap.Logger
type ZapLogger struct {
	Logger        *zap.Logger
	LogLevel      LogLevel
	SlowThreshold time.Duration
}

func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{Logger: logger, LogLevel: config.LogLevel, SlowThreshold: config.SlowThreshold}
}

// NewZapLoggerWithConfig development logger when Colorful is set, production JSON otherwise
func NewZapLoggerWithConfig(config Config, options ...zap.Option) Interface {
	cfg := zap.NewProductionConfig()
	if config.Colorful {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(ZapLevel(config.LogLevel))

	logger, err := cfg.Build(options...)
	if err != nil {
		logger = zap.NewNop()
	}
	return NewZapLogger(logger, config)
}

func (l *ZapLogger) LogMode(level LogLevel) Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.write(newEntry(ctx, Info, msg, data))
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.write(newEntry(ctx, Warn, msg, data))
}

func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.write(newEntry(ctx, Error, msg, data))
}

func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if e, ok := traceEntry(ctx, l.LogLevel, l.SlowThreshold, begin, fc, err); ok {
		l.write(e)
	}
}

func (l *ZapLogger) write(e entry) {
	if !enabled(l.LogLevel, e.level) {
		return
	}

	fields := make([]zap.Field, 0, len(e.fields)+1)
	for _, field := range e.fields {
		fields = append(fields, zap.Any(field.Key, field.Value))
	}
	if e.err != nil {
		fields = append(fields, zap.Error(e.err))
	}

	if ce := l.Logger.Check(ZapLevel(e.level), e.message); ce != nil {
		ce.Write(fields...)
	}
}

// ZapLevel zap level of level, Silent maps above every level the adapters emit
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		return zapcore.DPanicLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
