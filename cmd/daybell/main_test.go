package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kmorrow/daybell/internal/logger"
)

func TestSetupLogger(t *testing.T) {
	configDir := t.TempDir()
	dbPath := filepath.Join(configDir, "daybell.db")

	if err := setupLogger(false, dbPath); err != nil {
		t.Fatalf("setupLogger() error = %v", err)
	}
	if logger.Logger == nil {
		t.Fatal("global logger not initialized")
	}

	logger.Warn("test warning", "key", "value")

	logPath := filepath.Join(configDir, "logs", "daybell.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if len(data) == 0 {
		t.Error("warning not written to log file")
	}
}
