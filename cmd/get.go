package cmd

import (
	"github.com/spf13/cobra"

	"wkfmanager/internal/cli"
)

var getFlags cli.CommandFlags

// getCmd shows one or every registered workflow.
var getCmd = &cobra.Command{
	Use:   "get [STORE_ID]",
	Short: "Show registered workflows",
	Long: `Shows the workflow of one store, or every registered workflow when no
store id is given.

Examples:
  wkfmanager get
  wkfmanager get store-a -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := getFlags.NewClient(false)
	if err != nil {
		return err
	}
	printer := getFlags.Printer(cmd)

	if len(args) == 1 {
		spec, err := c.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printer.PrintWorkflow(args[0], spec)
	}

	all, err := c.List(cmd.Context())
	if err != nil {
		return err
	}
	return printer.PrintWorkflows(all)
}

func init() {
	rootCmd.AddCommand(getCmd)
	cli.RegisterCommonFlags(getCmd, &getFlags)
}
