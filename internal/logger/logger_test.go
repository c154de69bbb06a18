package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInit_WritesRotatingFile(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Level: "info", ConfigDir: configDir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Info("queue drained", "session", "s-1", "applied", 2)
	Debug("below threshold")

	data, err := os.ReadFile(filepath.Join(configDir, "logs", "brewlog.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "queue drained") || !strings.Contains(out, "session=s-1") {
		t.Errorf("log file = %q", out)
	}
	if strings.Contains(out, "below threshold") {
		t.Error("debug line written at info level")
	}
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want log.Level
	}{
		{"default", Config{}, log.WarnLevel},
		{"debug flag", Config{Debug: true}, log.DebugLevel},
		{"explicit level wins", Config{Debug: true, Level: "error"}, log.ErrorLevel},
		{"interactive debug", Config{Debug: true, Interactive: true}, log.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ConfigDir = t.TempDir()
			if err := Init(tt.cfg); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if got := Logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInit_BadLevel(t *testing.T) {
	if err := Init(Config{ConfigDir: t.TempDir(), Level: "chatty"}); err == nil {
		t.Error("Init() with unknown level should fail")
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
	if With("session", "s-1") != nil {
		t.Error("With() before Init should return nil")
	}
}
