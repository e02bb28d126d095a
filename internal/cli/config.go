package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds file-based defaults for the CLI. Flags take precedence over
// config values; config values take precedence over built-in defaults.
type Config struct {
	// Log is the path to the action log database.
	Log string `yaml:"log"`

	// Database is the path to the live database undo and redo execute
	// against.
	Database string `yaml:"database"`

	// Format is the default output format ("text" or "json").
	Format string `yaml:"format"`
}

// LoadConfig reads a YAML config file. A missing file is an error: the flag
// is optional, but a path given explicitly must resolve.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Format != "" && !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config %s: invalid format %q: must be one of %v", path, cfg.Format, ValidFormats)
	}

	return &cfg, nil
}
