// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTrashDir is the reserved top-level folder for soft-deleted items.
const DefaultTrashDir = ".trash"

// DefaultFolders are provisioned on first open when default structure
// creation is requested.
var DefaultFolders = []string{"documents", "notes", "boards"}

// Config holds all workspace layer configuration.
type Config struct {
	// Workspace
	RootPath       string
	Backend        string // auto, native, sandbox
	TrashDir       string
	DefaultFolders []string

	// Logging
	LogLevel  string
	LogFormat string

	// Watcher
	WatchInterval time.Duration

	// Metrics
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		RootPath:       envOr("PAPERBASE_ROOT", ""),
		Backend:        envOr("PAPERBASE_BACKEND", "auto"),
		TrashDir:       envOr("PAPERBASE_TRASH_DIR", DefaultTrashDir),
		DefaultFolders: envList("PAPERBASE_DEFAULT_FOLDERS", DefaultFolders),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "console"),
		WatchInterval:  envDuration("WATCH_INTERVAL", 5*time.Second),
		MetricsAddr:    envOr("METRICS_ADDR", ""),
	}

	if cfg.RootPath == "" {
		root, err := DefaultRoot()
		if err != nil {
			return nil, err
		}
		cfg.RootPath = root
	}

	switch cfg.Backend {
	case "auto", "native", "sandbox":
	default:
		return nil, fmt.Errorf("invalid PAPERBASE_BACKEND %q (want auto, native, or sandbox)", cfg.Backend)
	}

	return cfg, nil
}

// DefaultRoot returns the default workspace location under the user's
// home directory.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, "Paperbase"), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare integers are treated as seconds.
		if secs, serr := strconv.Atoi(v); serr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
