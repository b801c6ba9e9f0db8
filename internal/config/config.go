// Package config loads certporter's optional defaults file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds defaults a user can set once instead of repeating flags.
// Flags always win over config values.
type Config struct {
	DefaultDestination string `yaml:"defaultDestination,omitempty"`
	DefaultSource      string `yaml:"defaultSource,omitempty"`
	DefaultMode        string `yaml:"defaultMode,omitempty"`
	DefaultAlgorithm   string `yaml:"defaultAlgorithm,omitempty"`
	DefaultMinDays     int    `yaml:"defaultMinDays,omitempty"`
}

// Path returns the config file location:
// <UserConfigDir>/certporter/config.yaml.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(dir, "certporter", "config.yaml"), nil
}

// Load reads the config file. A missing file yields a zero Config and no
// error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}
