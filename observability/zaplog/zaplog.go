// Package zaplog adapts go.uber.org/zap to the core.Logger seam, with
// optional file rotation through lumberjack.
package zaplog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// Config describes the logger outputs. It mirrors the log section of the
// system configuration file.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	// Unrecognized values fall back to info.
	Level string

	// File, when set, routes JSON-encoded entries to a rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console routes console-encoded entries to stdout. When neither File
	// nor Console is set, Console is assumed.
	Console bool
}

// Logger adapts a zap.Logger to core.Logger.
type Logger struct {
	z *zap.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps an existing zap logger. A nil logger becomes a no-op.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Setup builds a zap-backed logger from the config.
func Setup(cfg Config) (*Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "info", "":
		level.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	var cores []zapcore.Core
	if cfg.File != "" {
		ws := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		})
		encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}
	if cfg.Console || cfg.File == "" {
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	}

	z := zap.New(zapcore.NewTee(cores...))
	return &Logger{z: z}, nil
}

// Zap exposes the underlying zap logger for callers that need it directly.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Sync flushes any buffered entries. Callers typically defer it.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.z.Debug(msg, convert(fields)...)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields ...core.Field) {
	l.z.Info(msg, convert(fields)...)
}

// Warn logs a warning message with optional fields.
func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.z.Warn(msg, convert(fields)...)
}

// Error logs an error message with optional fields.
func (l *Logger) Error(msg string, fields ...core.Field) {
	l.z.Error(msg, convert(fields)...)
}

func convert(fields []core.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
