package cmd

import (
	"github.com/spf13/cobra"

	"wkfmanager/internal/api"
	"wkfmanager/internal/cli"
)

var (
	updateFlags     cli.CommandFlags
	updateSpecFlags specFlags
)

// updateCmd replaces the component list of an existing workflow.
var updateCmd = &cobra.Command{
	Use:   "update STORE_ID",
	Short: "Change the components of a deployed workflow",
	Long: `Updates an existing workflow: added components are started, kept ones
receive the new spec and dropped ones are torn down. The deployment method
cannot change. When a component fails, the workflow is reverted to its
previous spec and the command exits with code 3.

Examples:
  wkfmanager update store-a --method edge --components cass,stock-analyzer`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	spec, err := updateSpecFlags.spec()
	if err != nil {
		return err
	}
	c, err := updateFlags.NewClient(false)
	if err != nil {
		return err
	}

	var updated api.WorkflowSpec
	err = cli.WithProgress(updateFlags.Quiet, "Updating workflow "+args[0], func() error {
		var err error
		updated, err = c.Update(cmd.Context(), args[0], spec)
		return err
	})
	if err != nil {
		return err
	}
	return updateFlags.Printer(cmd).PrintWorkflow(args[0], updated)
}

func init() {
	rootCmd.AddCommand(updateCmd)
	cli.RegisterCommonFlags(updateCmd, &updateFlags)
	registerSpecFlags(updateCmd, &updateSpecFlags)
}
