// Package config loads and saves the structured configuration a reactive
// instance is run with (spec.md §4.12).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const fileName = "reactive.config.json"

// Config is the on-disk shape persisted beside the store.
type Config struct {
	StorePath          string `json:"storePath"`
	SourceDir          string `json:"sourceDir"`
	MigrationRulesPath string `json:"migrationRulesPath,omitempty"`
}

// Path returns the path to the config file under a project root.
func Path(root string) string {
	return filepath.Join(root, fileName)
}

// Save writes the configuration to disk as indented JSON.
func Save(cfg *Config, root string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the configuration from disk.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
