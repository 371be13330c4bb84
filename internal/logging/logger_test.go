package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kingrea/unirecords/internal/config"
)

func TestNewWritesJSONLinesToDataDir(t *testing.T) {
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("refresh_started", zap.String("category", "courses"))
	logger.Printf("plain %d\n", 7)
	logger.Debug("hidden at info level")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.LogsDir(), "unirecords.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"category":"courses"`) {
		t.Fatalf("missing structured field in %q", text)
	}
	if !strings.Contains(text, `"msg":"plain 7"`) {
		t.Fatalf("missing printf line in %q", text)
	}
	if strings.Contains(text, "hidden at info level") {
		t.Fatalf("debug entry should be filtered")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Printf("ignored")
	if err := l.Close(); err != nil {
		t.Fatalf("close nil logger: %v", err)
	}
}

func TestWithoutConsoleStillWritesFile(t *testing.T) {
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger, err := New(cfg, WithoutConsole())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Warn("refresh_unit_failed")
	_ = logger.Close()
	data, err := os.ReadFile(filepath.Join(cfg.LogsDir(), "unirecords.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "refresh_unit_failed") {
		t.Fatalf("warning missing from file: %q", data)
	}
}
