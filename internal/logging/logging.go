// Package logging builds the zap loggers used across the service.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and output of the logger.
type Config struct {
	Level       string            `mapstructure:"level" json:"level"`
	Format      string            `mapstructure:"format" json:"format"` // "json" or "console"
	OutputPath  string            `mapstructure:"output_path" json:"output_path"`
	Fields      map[string]string `mapstructure:"fields" json:"fields"`
	Development bool              `mapstructure:"development" json:"development"`
}

// New builds a logger from cfg. An unparseable level falls back to info.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	zc.Level = level

	switch cfg.Format {
	case "console":
		zc.Encoding = "console"
	case "json":
		zc.Encoding = "json"
	}
	if cfg.OutputPath != "" {
		zc.OutputPaths = []string{cfg.OutputPath}
	}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, len(cfg.Fields))
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return log.With(fields...), nil
}

// Must is New that falls back to a production logger on error.
func Must(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		log, _ = zap.NewProduction()
		log.Warn("invalid logging config, using defaults", zap.Error(err))
	}
	return log
}

// Calculation returns the fields identifying one costing run.
func Calculation(id string, quantity int) []zap.Field {
	return []zap.Field{
		zap.String("calculation_id", id),
		zap.Int("quantity", quantity),
	}
}
