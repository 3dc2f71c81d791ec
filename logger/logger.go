package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gorm.io/assoc/utils"
)

// LogLevel log level
type LogLevel int

const (
	// Silent silent log level
	Silent LogLevel = iota + 1
	// Error error log level
	Error
	// Warn warn log level
	Warn
	// Info info log level
	Info
)

const (
	FormatZerolog = "zerolog"
	FormatZap     = "zap"
	FormatLogrus  = "logrus"
)

// Config logger config
type Config struct {
	SlowThreshold time.Duration
	Colorful      bool
	LogLevel      LogLevel
	// Format selects the backend used by New, one of zerolog, zap or logrus
	Format string
}

// Interface logger interface
type Interface interface {
	LogMode(LogLevel) Interface
	Info(context.Context, string, ...interface{})
	Warn(context.Context, string, ...interface{})
	Error(context.Context, string, ...interface{})
	// Trace reports a storage round trip, rows is -1 when unknown
	Trace(ctx context.Context, begin time.Time, fc func() (statement string, rows int64), err error)
}

var (
	// Discard logger will print nothing
	Discard = NewZerologLogger(zerolog.Nop(), Config{LogLevel: Silent})
	// Default default logger
	Default = New(Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      ParseLevel(os.Getenv("ASSOC_LOG_LEVEL")),
		Colorful:      true,
	})
)

// New creates a logger for config.Format, falling back to a zerolog console writer
func New(config Config) Interface {
	switch strings.ToLower(config.Format) {
	case FormatZap:
		return NewZapLoggerWithConfig(config)
	case FormatLogrus:
		return NewLogrusLoggerWithConfig(config)
	default:
		return NewZerologLoggerWithConfig(config)
	}
}

// ParseLevel parses silent, error, warn and info, anything else maps to Warn
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return Silent
	case "error":
		return Error
	case "info":
		return Info
	default:
		return Warn
	}
}

func (level LogLevel) String() string {
	switch level {
	case Silent:
		return "silent"
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	}
	return "unknown"
}

type relationshipKey struct{}

// WithRelationship tags ctx with the relationship key a storage round trip is issued for
func WithRelationship(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, relationshipKey{}, key)
}

// Relationship the key ctx was tagged with by WithRelationship
func Relationship(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(relationshipKey{}).(string)
	return key
}

// Field a key/value pair attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// entry a log line every adapter renders the same way
type entry struct {
	level   LogLevel
	message string
	err     error
	fields  []Field
}

// newEntry pairs up data as alternating keys and values, an unpaired value or a non
// string key is kept under "detail"
func newEntry(ctx context.Context, level LogLevel, msg string, data []interface{}) entry {
	e := entry{level: level, message: msg, fields: []Field{{"file", utils.FileWithLineNum()}}}
	if key := Relationship(ctx); key != "" {
		e.fields = append(e.fields, Field{"relationship", key})
	}

	var detail []interface{}
	for idx := 0; idx < len(data); idx += 2 {
		key, ok := data[idx].(string)
		if !ok || idx+1 == len(data) {
			detail = append(detail, data[idx:]...)
			break
		}
		e.fields = append(e.fields, Field{key, data[idx+1]})
	}

	if len(detail) > 0 {
		e.fields = append(e.fields, Field{"detail", detail})
	}
	return e
}

// traceEntry reports a storage round trip: failures at Error, round trips slower than
// slowThreshold at Warn, the rest at Info. ok is false when level filters it out
func traceEntry(ctx context.Context, level LogLevel, slowThreshold time.Duration, begin time.Time, fc func() (string, int64), err error) (e entry, ok bool) {
	if level <= Silent {
		return e, false
	}

	elapsed := time.Since(begin)
	slow := slowThreshold != 0 && elapsed > slowThreshold

	switch {
	case err != nil && level >= Error:
		e = newEntry(ctx, Error, "storage round trip failed", nil)
		e.err = err
	case err == nil && slow && level >= Warn:
		e = newEntry(ctx, Warn, "slow storage round trip", nil)
		e.fields = append(e.fields, Field{"slow_threshold", slowThreshold.String()})
	case err == nil && level >= Info:
		e = newEntry(ctx, Info, "storage round trip", nil)
	default:
		return e, false
	}

	statement, rows := fc()
	e.fields = append(e.fields,
		Field{"elapsed", fmt.Sprintf("%.3fms", float64(elapsed.Nanoseconds())/1e6)},
		Field{"statement", statement},
	)
	if rows >= 0 {
		e.fields = append(e.fields, Field{"rows", rows})
	}
	return e, true
}

func enabled(configured, level LogLevel) bool {
	return configured > Silent && configured >= level
}
