package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradebot-go/internal/config"
)

// NewLogger creates a zap.Logger from the logger section of the configuration.
// "json" selects the production encoder; anything else gets the human-readable
// development console encoder.
func NewLogger(cfg config.Logger) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(logLevel)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.InitialFields = map[string]interface{}{"service": "tradebot"}

	return zcfg.Build()
}
