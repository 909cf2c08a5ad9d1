package cmd

import (
	"github.com/spf13/cobra"

	"wkfmanager/internal/cli"
	"wkfmanager/internal/config"
)

var (
	consoleFlags      cli.CommandFlags
	consoleOrigin     string
	consoleComponents []string
)

// consoleCmd starts the interactive restaurant owner menu.
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive menu to manage the workflow of a store",
	Long: `Starts an interactive menu acting as a restaurant owner. Pick one of the
preset stores, then send, update, inspect or tear down its workflow.

Requests carry this host as origin; run 'wkfmanager listen' alongside to see
the result notifications.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	c, err := consoleFlags.NewClient(true)
	if err != nil {
		return err
	}

	rl, err := cli.NewReadline()
	if err != nil {
		return err
	}
	defer rl.Close()

	console := cli.NewConsole(c, rl, cmd.OutOrStdout(), consoleOrigin, consoleComponents)
	return console.Run(cmd.Context())
}

func defaultComponentNames() []string {
	defaults := config.DefaultComponents()
	names := make([]string, 0, len(defaults))
	for _, c := range defaults {
		names = append(names, c.Name)
	}
	return names
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	cli.RegisterConnectionFlags(consoleCmd, &consoleFlags)
	consoleCmd.Flags().StringVar(&consoleOrigin, "origin", cli.DefaultOrigin(), "Host that receives result notifications")
	consoleCmd.Flags().StringSliceVar(&consoleComponents, "components", defaultComponentNames(), "Components offered by the menu")
}
