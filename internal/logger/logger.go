// Package logger provides structured logging for opera-events on top of zap.
//
// A process-wide default logger backs the package-level helpers so that
// packages without an injected *zap.Logger can still log. Commands replace the
// default once configuration is loaded.
//
// Example usage:
//
//	log, err := logger.New(logger.LevelDebug, logger.FormatJSON, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault(log)
//
//	logger.Info("search finished", zap.String("query", "tosca"), zap.Int("events", 12))
//	logger.Debug("filter applied", zap.Int("kept", 3))
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the log encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

var defaultLogger atomic.Pointer[zap.Logger]

func init() {
	log, _ := New(LevelInfo, FormatJSON, os.Stderr)
	defaultLogger.Store(log)
}

// ParseLevel converts a configuration string into a Level.
func ParseLevel(s string) (Level, error) {
	switch lvl := Level(strings.ToLower(strings.TrimSpace(s))); lvl {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return lvl, nil
	default:
		return "", fmt.Errorf("unknown log level: %q", s)
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a logger writing entries at or above level to w.
func New(level Level, format Format, w io.Writer) (*zap.Logger, error) {
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	switch format {
	case FormatJSON, "":
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level.zapLevel())
	return zap.New(core), nil
}

// SetDefault replaces the logger used by the package-level functions.
func SetDefault(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	defaultLogger.Store(log)
}

// L returns the default logger
func L() *zap.Logger {
	return defaultLogger.Load()
}

// Debug logs a debug message with the default logger
func Debug(message string, fields ...zap.Field) {
	L().Debug(message, fields...)
}

// Info logs an info message with the default logger
func Info(message string, fields ...zap.Field) {
	L().Info(message, fields...)
}
