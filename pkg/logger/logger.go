// Package logger is a small structured-logging facade wrapping
// go.uber.org/zap, reconstructed from its call-site usage throughout the
// teacher repo's domain services (e.g. balance_service.go, ledger/service.go,
// limits/service.go all construct *logger.Logger and call
// Info/Warn/Error/Debug with alternating key/value pairs).
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger to give callers the
// Info(msg, keysAndValues...) call shape the teacher's services use.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger for the given level ("debug", "info", "warn", "error")
// and environment ("development", "production", "test"). Production
// environments get JSON output; anything else gets a human-readable console
// encoder, mirroring the teacher's dev/prod logging split.
func New(level, env string) *Logger {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{sugar: l.Sugar()}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Critical logs at error level tagged for the integrity-violation path
// (spec §7: integrity errors "are logged at critical severity").
func (l *Logger) Critical(msg string, keysAndValues ...interface{}) {
	kv := append([]interface{}{"severity", "critical"}, keysAndValues...)
	l.sugar.Errorw(msg, kv...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Desugar exposes the underlying *zap.Logger for callers (tracing
// initialization) that need zap's structured field API directly.
func (l *Logger) Desugar() *zap.Logger {
	return l.sugar.Desugar()
}
