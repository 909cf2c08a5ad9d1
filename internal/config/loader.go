package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wkfmanager/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/wkfmanager"
	configFileName = "config.yaml"
)

// DefaultConfigPath returns ~/.config/wkfmanager/config.yaml, or an empty
// string when the home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}

// LoadConfig loads configuration from the given YAML file, merged over the
// defaults. An empty path means DefaultConfigPath. A missing file is not an
// error: the defaults are returned.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	if configPath == "" {
		configPath = DefaultConfigPath()
		if configPath == "" {
			logging.Info("ConfigLoader", "No home directory, using defaults")
			return config, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config found at %s, using defaults", configPath)
			return config, nil
		}
		return Config{}, ConfigurationError{
			FilePath:  configPath,
			ErrorType: "io",
			Message:   err.Error(),
		}
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, ConfigurationError{
			FilePath:  configPath,
			ErrorType: "parse",
			Message:   err.Error(),
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configPath)
	return config, nil
}

// LoadComponents reads a catalog file holding a top-level components list.
func LoadComponents(path string) ([]ComponentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigurationError{
			FilePath:  path,
			ErrorType: "io",
			Message:   err.Error(),
		}
	}

	var file struct {
		Components []ComponentConfig `yaml:"components"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, ConfigurationError{
			FilePath:  path,
			ErrorType: "parse",
			Message:   err.Error(),
		}
	}

	var errs ValidationErrors
	validateComponents(file.Components, &errs)
	if errs.HasErrors() {
		return nil, ConfigurationError{
			FilePath:  path,
			ErrorType: "validation",
			Message:   errs.Error(),
		}
	}
	return file.Components, nil
}
