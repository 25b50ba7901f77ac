// Package logger holds the process-wide zap logger. Init is called once from
// main; everything else grabs the singleton through L or Named.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init initializes the singleton. Idempotent; only the first call has effect.
func Init(env, level string) {
	once.Do(func() {
		instance = build(env, level)
	})
}

// L returns the singleton, building a dev logger if Init was never called.
func L() *zap.Logger {
	if instance == nil {
		Init("development", "info")
	}
	return instance
}

// Named returns a logger tagged with a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries. Deferred in main.
func Sync() {
	if instance != nil {
		_ = instance.Sync()
	}
}

func build(env, level string) *zap.Logger {
	lvl := parseLevel(level)

	var cfg zap.Config
	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
