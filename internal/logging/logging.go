// internal/logging/logging.go
// ---------------------------
// Thin zap wrapper giving the rest of the module a printf-style logging
// surface (Debugf/Infof/Warnf/Errorf) without threading a logger through
// every constructor.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger = newLogger(zapcore.InfoLevel)
)

func newLogger(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap's production config only fails on bad paths; fall back to a
		// no-op logger rather than crashing the host.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Init replaces the package logger at the given level ("debug", "info",
// "warn", "error").
func Init(level string) {
	parsed := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		parsed = zapcore.DebugLevel
	case "info":
		parsed = zapcore.InfoLevel
	case "warn", "warning":
		parsed = zapcore.WarnLevel
	case "error":
		parsed = zapcore.ErrorLevel
	}
	mu.Lock()
	logger = newLogger(parsed)
	mu.Unlock()
}

// InitFromEnv initializes the logger from CINEBRIDGE_LOG_LEVEL.
func InitFromEnv() {
	if lvl := os.Getenv("CINEBRIDGE_LOG_LEVEL"); lvl != "" {
		Init(lvl)
	}
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { get().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { get().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }

// Sync flushes buffered log entries. Best effort on shutdown.
func Sync() {
	_ = get().Sync()
}
