// Package logger is a process-wide zap logger. Until Initialize runs every
// call is a no-op, so packages can log freely from tests.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// Configuration selects log sinks. Level is any zapcore level name and falls
// back to info when empty or invalid.
type Configuration struct {
	LogFile   string `yaml:"log_file"`
	ErrorFile string `yaml:"error_file"`
	Level     string `yaml:"level"`
	Console   bool   `yaml:"console"`
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "timestamp",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Initialize replaces the global logger. With no sinks configured it logs to
// stdout.
func Initialize(cfg Configuration) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core

	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), level))
	}

	if cfg.ErrorFile != "" {
		f, err := openLogFile(cfg.ErrorFile)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.ErrorLevel))
	}

	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level))
	}

	set(zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// InitializeWriter routes all logs at level and above to w as JSON lines.
func InitializeWriter(w io.Writer, level zapcore.Level) {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)
	set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

func set(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// L returns the underlying logger for callers that need Named or With.
func L() *zap.Logger {
	return get().WithOptions(zap.AddCallerSkip(-1))
}

func Debug(message string, fields ...zap.Field) {
	get().Debug(message, fields...)
}

func Info(message string, fields ...zap.Field) {
	get().Info(message, fields...)
}

func Warn(message string, fields ...zap.Field) {
	get().Warn(message, fields...)
}

func Error(message string, fields ...zap.Field) {
	get().Error(message, fields...)
}

func Fatal(message string, fields ...zap.Field) {
	get().Fatal(message, fields...)
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() {
	_ = get().Sync()
}
