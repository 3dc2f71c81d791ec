package assoc

import (
	"time"

	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
)

// ConfigOption use functional option for engine Config.
type ConfigOption func(c *Config)

// WithLogger set logger.
func WithLogger(logger logger.Interface) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithNamingStrategy set the namer used to guess foreign keys.
func WithNamingStrategy(namer schema.Namer) ConfigOption {
	return func(c *Config) {
		c.NamingStrategy = namer
	}
}

// WithDefaultLoading set the loading strategy of relationships that don't declare one.
func WithDefaultLoading(loading schema.Loading) ConfigOption {
	return func(c *Config) {
		c.DefaultLoading = loading
	}
}

// WithSkipValidation skip startup validation.
func WithSkipValidation() ConfigOption {
	return func(c *Config) {
		c.SkipValidation = true
	}
}

// WithSlowThreshold set slow fetch threshold.
func WithSlowThreshold(threshold time.Duration) ConfigOption {
	return func(c *Config) {
		c.SlowThreshold = threshold
	}
}

// WithConfig replace the config, options after it still apply.
func WithConfig(config *Config) ConfigOption {
	return func(c *Config) {
		if config != nil {
			config.Apply(c)
		}
	}
}
