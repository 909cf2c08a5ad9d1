package app

import (
	"fmt"

	"wkfmanager/internal/config"
	"wkfmanager/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// LogLevel is one of debug, info, warn or error. Debug wins over it.
	LogLevel string

	// LogFormat selects text or json log output
	LogFormat string

	// Custom configuration file path (optional)
	// When empty, ~/.config/wkfmanager/config.yaml is used if present
	ConfigPath string

	// Runtime overrides runtime.type from the configuration file
	Runtime string

	// Port overrides server.port from the configuration file when non-zero
	Port int

	// Engine configuration; loaded from ConfigPath when nil
	EngineConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, logFormat, configPath, runtime string, port int) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logFormat,
		ConfigPath: configPath,
		Runtime:    runtime,
		Port:       port,
	}
}

// applyOverrides copies command line overrides into the engine configuration.
func (c *Config) applyOverrides() {
	if c.Runtime != "" {
		c.EngineConfig.Runtime.Type = config.RuntimeType(c.Runtime)
	}
	if c.Port != 0 {
		c.EngineConfig.Server.Port = c.Port
	}
}

// logLevel resolves the level to initialize logging with.
func (c *Config) logLevel() (logging.LogLevel, error) {
	if c.Debug {
		return logging.LevelDebug, nil
	}
	level, ok := logging.ParseLevel(c.LogLevel)
	if !ok {
		return level, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", c.LogLevel)
	}
	return level, nil
}
