package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"wkfmanager/internal/cli"
	"wkfmanager/internal/client"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (unreachable engine, invalid arguments).
	ExitCodeError = 1
	// ExitCodeRejected indicates the engine rejected the request before touching the cluster.
	ExitCodeRejected = 2
	// ExitCodeDeployFailed indicates that components failed and the transition was rolled back.
	ExitCodeDeployFailed = 3
)

// rootCmd represents the base command for the wkfmanager application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wkfmanager",
	Short: "Deploy customer workflows onto a container cluster",
	Long: `wkfmanager is a workflow orchestration engine. It accepts declarative
workflow requests over REST, deploys the listed components onto a Docker
Swarm or Kubernetes cluster, waits for them to become healthy and tears them
down again. Run 'wkfmanager serve' to start the engine; the other commands
talk to a running engine.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "wkfmanager version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Failure(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	switch client.StatusCode(err) {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		return ExitCodeRejected
	case http.StatusForbidden:
		return ExitCodeDeployFailed
	default:
		return ExitCodeError
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
