package assoc

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"gorm.io/assoc/logger"
	"gorm.io/assoc/schema"
)

// Config engine config, file and environment fields are read by LoadConfig
type Config struct {
	// LogLevel silent, error, warn or info
	LogLevel string `yaml:"log_level" env:"ASSOC_LOG_LEVEL" env-default:"warn"`
	// LogFormat zerolog, zap or logrus
	LogFormat string `yaml:"log_format" env:"ASSOC_LOG_FORMAT" env-default:"zerolog"`
	// SlowThreshold fetches slower than this are logged as warnings
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"ASSOC_SLOW_THRESHOLD" env-default:"200ms"`
	// DefaultLoading used by relationships that don't declare a loading strategy
	DefaultLoading schema.Loading `yaml:"default_loading" env:"ASSOC_DEFAULT_LOADING" env-default:"lazy"`
	// SkipValidation skips resolving every registered relationship when the engine is opened
	SkipValidation bool `yaml:"skip_validation" env:"ASSOC_SKIP_VALIDATION"`
	// KeySuffix suffix of guessed foreign keys
	KeySuffix string `yaml:"key_suffix" env:"ASSOC_KEY_SUFFIX" env-default:"id"`
	// CatalogPath and RegistryPath locate the schema catalog and registry files
	CatalogPath  string `yaml:"catalog" env:"ASSOC_CATALOG"`
	RegistryPath string `yaml:"registry" env:"ASSOC_REGISTRY"`

	// Logger overrides the logger built from LogLevel and LogFormat
	Logger logger.Interface `yaml:"-"`
	// NamingStrategy overrides the naming strategy built from KeySuffix
	NamingStrategy schema.Namer `yaml:"-"`
}

// LoadConfig reads config from the YAML file at path, environment variables take precedence.
// An empty path reads the environment only.
func LoadConfig(path string) (*Config, error) {
	var (
		config Config
		err    error
	)

	if path == "" {
		err = cleanenv.ReadEnv(&config)
	} else {
		err = cleanenv.ReadConfig(path, &config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &config, nil
}

// Apply update config to new config
func (c *Config) Apply(config *Config) {
	if config != c {
		*config = *c
	}
}

// AfterInitialize fills unset fields with defaults
func (c *Config) AfterInitialize() error {
	if c.DefaultLoading == "" {
		c.DefaultLoading = schema.Lazy
	}

	if c.NamingStrategy == nil {
		c.NamingStrategy = schema.NamingStrategy{KeySuffix: c.KeySuffix}
	}

	if c.Logger == nil {
		c.Logger = logger.New(logger.Config{
			SlowThreshold: c.SlowThreshold,
			LogLevel:      logger.ParseLevel(c.LogLevel),
			Format:        c.LogFormat,
		})
	}

	return nil
}
