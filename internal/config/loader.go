package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML game config and expands ${VAR} environment variables.
func Load(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML game config from memory.
func Parse(data []byte) (*GameConfig, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg GameConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse game config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadAndValidate loads a config, applies defaults and validates it.
func LoadAndValidate(path string) (*GameConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Finish()
}

// Finish applies defaults then validates.
func (c *GameConfig) Finish() error {
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate game config: %w", err)
	}
	return nil
}
