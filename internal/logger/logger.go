// Package logger builds the zap logger shared by all components.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-token-desk/internal/config"
)

// New creates a logger writing to stderr.
// An unknown level is an error so typos in configuration surface early.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logger level %q: %w", cfg.Level, err)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case "json", "":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("logger encoding %q: want json or console", cfg.Encoding)
	}

	// stdout carries command output; logs go to stderr.
	return zap.New(zapcore.NewCore(
		encoder,
		zapcore.Lock(os.Stderr),
		level,
	), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
