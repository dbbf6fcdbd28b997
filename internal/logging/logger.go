// Package logging builds the zap loggers used across the host process.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level       string            `yaml:"level" json:"level"`
	Format      string            `yaml:"format" json:"format"` // "json" or "console"
	OutputPath  string            `yaml:"output_path" json:"output_path"`
	Fields      map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Development bool              `yaml:"development" json:"development"`
}

// Normalize fills defaults. Output goes to stderr unless a path is set so
// stdio transports stay clean.
func (c *Config) Normalize() {
	if c.Level == "" {
		c.Level = "info"
	}
	c.Format = strings.ToLower(c.Format)
	if c.Format != "console" {
		c.Format = "json"
	}
	if c.OutputPath == "" {
		c.OutputPath = "stderr"
	}
}

// NewLogger creates a structured logger from config.
func NewLogger(config Config) (*zap.Logger, error) {
	config.Normalize()

	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level
	zapConfig.Encoding = config.Format
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.OutputPaths = []string{config.OutputPath}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if len(config.Fields) > 0 {
		fields := make([]zap.Field, 0, len(config.Fields))
		for k, v := range config.Fields {
			fields = append(fields, zap.String(k, v))
		}
		logger = logger.With(fields...)
	}
	return logger, nil
}

// NewDefaultLogger returns an info-level JSON logger on stderr, falling back
// to a no-op logger if construction fails.
func NewDefaultLogger() *zap.Logger {
	logger, err := NewLogger(Config{Fields: map[string]string{"service": "athas"}})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Component scopes a logger to a named subsystem. A nil logger yields a no-op.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}
