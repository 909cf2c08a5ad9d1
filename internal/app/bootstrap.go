package app

import (
	"context"
	"fmt"
	"os"

	"wkfmanager/internal/cluster"
	"wkfmanager/internal/config"
	"wkfmanager/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs wkfmanager.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: Load configuration, initialize logging, setup services
//  2. Execution phase: Serve the REST API until interrupted
//
// Example usage:
//
//	cfg := app.NewConfig(true, "text", "", "memory", 0)
//	app, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return app.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging based on the debug, level and format settings
//  2. Loads the engine configuration unless one is already set
//  3. Connects to the cluster runtime
//  4. Initializes all services
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel, err := cfg.logLevel()
	if err != nil {
		return nil, err
	}
	format := logging.FormatText
	if cfg.LogFormat == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}
	logging.Init(appLogLevel, format, os.Stderr)

	if cfg.EngineConfig == nil {
		engineCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.EngineConfig = &engineCfg
	}
	cfg.applyOverrides()
	if err := cfg.EngineConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	runtime, err := cluster.NewRuntime(cfg.EngineConfig.Runtime)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to create %s runtime", cfg.EngineConfig.Runtime.Type)
		return nil, fmt.Errorf("failed to create cluster runtime: %w", err)
	}
	logging.Info("Bootstrap", "Using %s runtime", cfg.EngineConfig.Runtime.Type)

	services, err := InitializeServices(*cfg.EngineConfig, runtime)
	if err != nil {
		_ = runtime.Close()
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves the REST API until ctx is cancelled or a termination signal
// arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}
