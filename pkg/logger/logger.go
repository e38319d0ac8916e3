package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日誌設定
type Config struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Encoding    string `yaml:"encoding"`    // json, console
	Development bool   `yaml:"development"` // 開發模式: 彩色 console 與 stacktrace
}

// New 依設定建立 zap.Logger
func New(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Encoding {
	case "":
	case "json", "console":
		zcfg.Encoding = cfg.Encoding
	default:
		return nil, fmt.Errorf("invalid log encoding %q", cfg.Encoding)
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}
