package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/blewire/pkg/convert"
	"github.com/srg/blewire/pkg/stream"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	LogLevel     string           `yaml:"log_level" default:"info"`
	Revision     convert.Revision `yaml:"revision"`
	Namespace    string           `yaml:"namespace" default:"flutter_ble_lib"`
	OutputFormat string           `yaml:"output_format" default:"json"` // json, text
	TapBuffer    int              `yaml:"tap_buffer" default:"256"`
	CallTimeout  time.Duration    `yaml:"call_timeout" default:"30s"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. Keys absent from the file keep their default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: namespace must not be empty", ErrInvalidConfig)
	}
	switch c.OutputFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: output_format %q (want json or text)", ErrInvalidConfig, c.OutputFormat)
	}
	if c.TapBuffer <= 0 {
		return fmt.Errorf("%w: tap_buffer must be positive, got %d", ErrInvalidConfig, c.TapBuffer)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("%w: call_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// ChannelNames lists the event channel names under the configured namespace.
func (c *Config) ChannelNames() []string {
	return stream.Names(c.Namespace)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
