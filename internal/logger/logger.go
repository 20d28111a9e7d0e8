// Package logger wraps zap behind the small structured-logging surface used
// across the harvester: a message, an event name and a field map.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract consumed by every package.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) DebugObj(string, string, map[string]any) {}
func (NopLogger) InfoObj(string, string, map[string]any)  {}
func (NopLogger) WarnObj(string, string, map[string]any)  {}
func (NopLogger) ErrorObj(string, string, map[string]any) {}

// Ensure returns log, or a NopLogger when log is nil.
func Ensure(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}

// ZapLogger implements Logger on top of a zap.Logger.
type ZapLogger struct {
	z *zap.Logger
}

// New builds a zap-backed logger. format is "json" or "console".
func New(level, format string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{z: z}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

func (l *ZapLogger) DebugObj(msg, event string, fields map[string]any) {
	l.z.Debug(msg, toFields(event, fields)...)
}

func (l *ZapLogger) InfoObj(msg, event string, fields map[string]any) {
	l.z.Info(msg, toFields(event, fields)...)
}

func (l *ZapLogger) WarnObj(msg, event string, fields map[string]any) {
	l.z.Warn(msg, toFields(event, fields)...)
}

func (l *ZapLogger) ErrorObj(msg, event string, fields map[string]any) {
	l.z.Error(msg, toFields(event, fields)...)
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

func toFields(event string, fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if event != "" {
		out = append(out, zap.String("event", event))
	}
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
