package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"beacon/pkg/logging"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// Factory supplies a configuration asynchronously. The bootstrap resolves it
// before the engine is constructed, so components never observe a partially
// supplied configuration.
type Factory func(ctx context.Context) (Config, error)

// LoadConfig loads configuration from the given directory. A missing
// config.yaml is not an error; defaults apply. A malformed one is.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config in %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return cfg, nil
}

// StaticFactory wraps an already-built configuration in a Factory.
func StaticFactory(cfg Config) Factory {
	return func(context.Context) (Config, error) {
		return cfg, nil
	}
}

// FileFactory returns a Factory that loads from the given directory when
// resolved.
func FileFactory(configPath string) Factory {
	return func(context.Context) (Config, error) {
		return LoadConfig(configPath)
	}
}
