// Package config loads the project-level configuration from .mirrordex.yaml,
// applying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mirrordex/mirrordex/internal/index"
)

// StorageDirName is the tool's own storage directory under the project root.
// It is always excluded from indexing.
const StorageDirName = ".mirrordex"

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".mirrordex.yaml"

// Config is the complete mirrordex configuration.
type Config struct {
	// MaxFileSize is the largest file indexed, in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// Include restricts scanning to paths matching these globs (empty = all).
	Include []string `yaml:"include"`

	// Exclude adds glob patterns on top of the built-in defaults.
	Exclude []string `yaml:"exclude"`

	// RespectGitignore enables .gitignore parsing (default: true).
	RespectGitignore bool `yaml:"respect_gitignore"`

	// WatchDebounce is the settling window for coalescing filesystem events,
	// as a duration string (e.g. "500ms").
	WatchDebounce string `yaml:"watch_debounce"`

	// Workers is the number of concurrent file readers during a full scan
	// (0 = GOMAXPROCS).
	Workers int `yaml:"workers"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MaxFileSize:      index.DefaultMaxFileSize,
		RespectGitignore: true,
		WatchDebounce:    "500ms",
		Workers:          0,
		LogLevel:         "info",
	}
}

// Load reads .mirrordex.yaml from root. A missing file yields the defaults;
// a present but unparsable file is an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by partial config files.
func (c *Config) applyDefaults() {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = index.DefaultMaxFileSize
	}
	if c.WatchDebounce == "" {
		c.WatchDebounce = "500ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if d, err := time.ParseDuration(c.WatchDebounce); err != nil || d <= 0 {
		return fmt.Errorf("watch_debounce must be a positive duration, got %q", c.WatchDebounce)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// DebounceWindow returns the parsed watch debounce duration.
func (c *Config) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// StorageDir returns the storage directory for a project root.
func StorageDir(root string) string {
	return filepath.Join(root, StorageDirName)
}
