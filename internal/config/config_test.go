package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PAPERBASE_ROOT", "PAPERBASE_BACKEND", "PAPERBASE_TRASH_DIR",
		"PAPERBASE_DEFAULT_FOLDERS", "LOG_LEVEL", "LOG_FORMAT", "WATCH_INTERVAL", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "auto" || cfg.TrashDir != ".trash" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.WatchInterval != 5*time.Second {
		t.Errorf("WatchInterval = %v", cfg.WatchInterval)
	}
	if len(cfg.DefaultFolders) != 3 {
		t.Errorf("DefaultFolders = %v", cfg.DefaultFolders)
	}
	if filepath.Base(cfg.RootPath) != "Paperbase" {
		t.Errorf("RootPath = %q, want home Paperbase dir", cfg.RootPath)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PAPERBASE_ROOT", "/data/ws")
	t.Setenv("PAPERBASE_BACKEND", "sandbox")
	t.Setenv("PAPERBASE_TRASH_DIR", ".bin")
	t.Setenv("PAPERBASE_DEFAULT_FOLDERS", "inbox, outbox , ,archive")
	t.Setenv("WATCH_INTERVAL", "250ms")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RootPath != "/data/ws" || cfg.Backend != "sandbox" || cfg.TrashDir != ".bin" {
		t.Errorf("cfg = %+v", cfg)
	}
	want := []string{"inbox", "outbox", "archive"}
	if len(cfg.DefaultFolders) != len(want) {
		t.Fatalf("DefaultFolders = %v", cfg.DefaultFolders)
	}
	for i, f := range want {
		if cfg.DefaultFolders[i] != f {
			t.Errorf("folder[%d] = %q, want %q", i, cfg.DefaultFolders[i], f)
		}
	}
	if cfg.WatchInterval != 250*time.Millisecond {
		t.Errorf("WatchInterval = %v", cfg.WatchInterval)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("PAPERBASE_ROOT", "/data/ws")
	t.Setenv("PAPERBASE_BACKEND", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"2s", 2 * time.Second},
		{"10", 10 * time.Second},
		{"garbage", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("WATCH_INTERVAL", tt.value)
		if got := envDuration("WATCH_INTERVAL", 5*time.Second); got != tt.want {
			t.Errorf("envDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
