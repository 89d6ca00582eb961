// Package config loads and saves the Stage Whisper application
// configuration: a YAML file (by default ~/.config/stagewhisper/config.yaml)
// overridden by STAGEWHISPER_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to upper-cased key names for environment lookup,
// so "export_dir" maps to STAGEWHISPER_EXPORT_DIR.
const EnvPrefix = "STAGEWHISPER_"

// Config holds the application settings the transcript core and its shell
// need.
type Config struct {
	// DatabasePath is where the SQLite database lives.
	DatabasePath string `yaml:"database_path"`

	// ExportDir is the default directory transcripts are exported into.
	ExportDir string `yaml:"export_dir"`

	// ExportCollisionLimit bounds how many suffixed names an export probes
	// before giving up.
	ExportCollisionLimit int `yaml:"export_collision_limit"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "json" or "console".
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DatabasePath:         filepath.Join(home, ".local", "share", "stagewhisper", "stagewhisper.sqlite"),
		ExportDir:            filepath.Join(home, "Documents", "Stage Whisper"),
		ExportCollisionLimit: 100,
		LogLevel:             "info",
		LogFormat:            "console",
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stagewhisper", "config.yaml")
}

// Load reads the config file at path, falling back to defaults for a missing
// file, then applies environment overrides. Unknown YAML keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the enclosing directory.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value-level constraints.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("log_level must be a zerolog level name (got: %s)", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console (got: %s)", c.LogFormat)
	}
	if c.ExportCollisionLimit <= 0 {
		return fmt.Errorf("export_collision_limit must be positive (got: %d)", c.ExportCollisionLimit)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv(EnvPrefix + "EXPORT_DIR"); v != "" {
		c.ExportDir = v
	}
	if v := os.Getenv(EnvPrefix + "EXPORT_COLLISION_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ExportCollisionLimit = n
		}
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}
