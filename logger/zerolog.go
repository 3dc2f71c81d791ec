package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger writes entries through a zerolog.Logger
type ZerologLogger struct {
	Logger        zerolog.Logger
	LogLevel      LogLevel
	SlowThreshold time.Duration
}

func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{Logger: logger, LogLevel: config.LogLevel, SlowThreshold: config.SlowThreshold}
}

// NewZerologLoggerWithConfig console logger on stdout, or the logger of ctx when given
func NewZerologLoggerWithConfig(config Config, ctx ...zerolog.Context) Interface {
	if len(ctx) > 0 {
		return NewZerologLogger(ctx[0].Logger(), config)
	}

	out := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = time.RFC3339
		w.NoColor = !config.Colorful
	})
	return NewZerologLogger(zerolog.New(out).Level(ZerologLevel(config.LogLevel)).With().Timestamp().Logger(), config)
}

func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Info, msg, data))
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Warn, msg, data))
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, newEntry(ctx, Error, msg, data))
}

func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if e, ok := traceEntry(ctx, l.LogLevel, l.SlowThreshold, begin, fc, err); ok {
		l.write(ctx, e)
	}
}

func (l *ZerologLogger) write(ctx context.Context, e entry) {
	if !enabled(l.LogLevel, e.level) {
		return
	}

	event := l.Logger.WithLevel(ZerologLevel(e.level))
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	if e.err != nil {
		event = event.Err(e.err)
	}
	for _, field := range e.fields {
		event = event.Interface(field.Key, field.Value)
	}
	event.Msg(e.message)
}

// ZerologLevel zerolog level of level, Silent disables output
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
