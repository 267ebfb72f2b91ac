package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptvault/internal/config"
)

// New builds the process logger. Production and staging log JSON, everything else
// uses the development console encoder. An explicit level overrides the default.
func New(env string, cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config

	switch env {
	case "production":
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	switch cfg.Format {
	case "json":
		zc.Encoding = "json"
	case "console":
		zc.Encoding = "console"
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.With(zap.String("service", "promptvault")), nil
}
