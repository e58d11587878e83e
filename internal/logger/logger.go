package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Environment string
	LogLevel    string
	ServiceName string
}

// New builds a JSON logger for production and a console logger for dev.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "dev" || cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level(cfg.LogLevel))
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.OutputPaths = []string{"stdout"}

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return log.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	), nil
}

func level(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GooseAdapter routes migration output through zap.
type GooseAdapter struct {
	Log *zap.SugaredLogger
}

func (g GooseAdapter) Fatalf(format string, v ...interface{}) {
	g.Log.Fatalf(strings.TrimSpace(format), v...)
}

func (g GooseAdapter) Printf(format string, v ...interface{}) {
	g.Log.Infof(strings.TrimSpace(format), v...)
}
