package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// adapters builds each backend writing JSON into a buffer
var adapters = map[string]func(buf *bytes.Buffer, config Config) Interface{
	"zerolog": func(buf *bytes.Buffer, config Config) Interface {
		return NewZerologLogger(zerolog.New(buf), config)
	},
	"zap": func(buf *bytes.Buffer, config Config) Interface {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(buf), zapcore.InfoLevel)
		return NewZapLogger(zap.New(core), config)
	},
	"logrus": func(buf *bytes.Buffer, config Config) Interface {
		logger := logrus.New()
		logger.SetOutput(buf)
		logger.SetFormatter(&logrus.JSONFormatter{})
		return NewLogrusLogger(logger, config)
	},
}

func TestAdapters(t *testing.T) {
	config := Config{LogLevel: Warn, SlowThreshold: 100 * time.Millisecond}
	ctx := WithRelationship(context.Background(), "user.emergency_addresses")

	for name, build := range adapters {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := build(&buf, config)

			logger.Info(ctx, "relationship resolved", "relationship", "user.address")
			assert.Empty(t, buf.String())

			logger.Warn(ctx, "relationships write the same rows", "overlap", "user.address/user.emergency_addresses")
			assert.Contains(t, buf.String(), "relationships write the same rows")
			assert.Contains(t, buf.String(), "user.address/user.emergency_addresses")
			assert.Contains(t, buf.String(), `"relationship":"user.emergency_addresses"`)

			buf.Reset()
			logger.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
				return "entity_address WHERE entity_address.entity_type = 'user'", 3
			}, nil)
			assert.Contains(t, buf.String(), "slow storage round trip")
			assert.Contains(t, buf.String(), "slow_threshold")
			assert.Contains(t, buf.String(), `"rows":3`)

			buf.Reset()
			logger.Trace(ctx, time.Now(), func() (string, int64) { return "address", -1 }, errors.New("connection reset"))
			assert.Contains(t, buf.String(), "storage round trip failed")
			assert.Contains(t, buf.String(), "connection reset")
			assert.NotContains(t, buf.String(), "rows")

			buf.Reset()
			logger.LogMode(Info).Info(ctx, "relationship resolved", "relationship", "user.address")
			assert.Contains(t, buf.String(), "relationship resolved")

			buf.Reset()
			logger.LogMode(Silent).Error(ctx, "failed", "relationship", "user.address")
			assert.Empty(t, buf.String())
		})
	}
}

func TestLevels(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, ZerologLevel(Silent))
	assert.Equal(t, zerolog.WarnLevel, ZerologLevel(Warn))
	assert.Equal(t, zapcore.DPanicLevel, ZapLevel(Silent))
	assert.Equal(t, zapcore.ErrorLevel, ZapLevel(Error))
	assert.Equal(t, logrus.PanicLevel, LogrusLevel(Silent))
	assert.Equal(t, logrus.InfoLevel, LogrusLevel(Info))
}
