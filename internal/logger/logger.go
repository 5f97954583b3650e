// Package logger wraps zap so the rest of the application logs through a
// single preconfigured instance.  Production builds emit JSON with ISO8601
// timestamps; everything else gets the colored development console encoder.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger = zap.NewNop()

// Init builds the global logger for the given environment.  Call once from
// main before anything else logs.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "prod" || env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = cfg.Build(zap.Fields(zap.String("service", "parking-api")))
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = cfg.Build(zap.Fields(zap.String("service", "parking-api")))
	}
	if err != nil {
		return err
	}
	log = l
	return nil
}

// L returns the global logger.
func L() *zap.Logger { return log }

// S returns the global sugared logger.
func S() *zap.SugaredLogger { return log.Sugar() }

// Sync flushes buffered entries; safe to defer from main.
func Sync() { _ = log.Sync() }
