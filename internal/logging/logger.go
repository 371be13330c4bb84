package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/unirecords/internal/config"
)

// Logger appends structured lines to .unirecords/logs/unirecords.log so users
// can inspect failures after the process exits. Warnings and errors are also
// echoed to stderr.
type Logger struct {
	*zap.Logger
	file *os.File
}

// Option customizes New.
type Option func(*options)

type options struct {
	console bool
}

// WithoutConsole keeps warnings off stderr, for full-screen front ends.
func WithoutConsole() Option {
	return func(o *options) { o.console = false }
}

// New creates (or reuses) the log file for the configured data directory.
func New(cfg *config.Config, opts ...Option) (*Logger, error) {
	o := options{console: true}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		return nil, fmt.Errorf("logging: config is required")
	}
	level, err := zapcore.ParseLevel(cfg.Project.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logDir := cfg.LogsDir()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "unirecords.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	var console zapcore.WriteSyncer
	if o.console {
		console = zapcore.Lock(os.Stderr)
	}
	return &Logger{Logger: build(level, zapcore.AddSync(f), console), file: f}, nil
}

func build(level zapcore.Level, file, console zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), file, level)}
	if console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, zapcore.WarnLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Close flushes buffered entries and releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.Logger.Sync()
	return l.file.Close()
}

// Printf writes a single free-text line at info level.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
