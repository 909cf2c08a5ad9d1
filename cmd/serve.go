package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wkfmanager/internal/app"
	"wkfmanager/internal/config"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveLogLevel sets the minimum level of log output.
var serveLogLevel string

// serveLogFormat selects text or json log output.
var serveLogFormat string

// serveConfigPath specifies a custom configuration file.
var serveConfigPath string

// serveRuntime overrides the cluster runtime from the configuration file.
var serveRuntime string

// servePort overrides the REST API port from the configuration file.
var servePort int

// serveCmd defines the serve command structure.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow engine REST API",
	Long: `Starts the workflow engine and serves its REST API until interrupted.

Workflows are deployed onto the cluster runtime selected in the configuration
or with --runtime:
  swarm       Docker Swarm services (default, uses DOCKER_HOST)
  kubernetes  a Deployment and Service per component instance
  memory      in-process runtime for dry runs

Configuration:
  wkfmanager loads ~/.config/wkfmanager/config.yaml when present and uses
  built-in defaults otherwise. Use --config to point at another file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveLogFormat, serveConfigPath, serveRuntime, servePort)
	cfg.LogLevel = serveLogLevel

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Configuration file (default "+config.DefaultConfigPath()+")")
	serveCmd.Flags().StringVar(&serveRuntime, "runtime", "", "Cluster runtime (swarm, kubernetes, memory)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "REST API port (overrides server.port)")
}
