package core

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the central logger used by all glyphmap packages.
var Logger *zap.SugaredLogger

var loglevel zap.AtomicLevel

func init() {
	loglevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = loglevel
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Logger = logger.Sugar()
}

// SetLogLevel sets the minimum level for the central logger.
func SetLogLevel(level zapcore.Level) {
	loglevel.SetLevel(level)
}
