package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wkfmanager/internal/cli"
)

var deleteFlags cli.CommandFlags

// deleteCmd tears a workflow down.
var deleteCmd = &cobra.Command{
	Use:     "delete STORE_ID",
	Aliases: []string{"teardown"},
	Short:   "Tear a workflow down",
	Long: `Tears a workflow down. Its edge instances are removed; persistent
instances are removed once no other workflow uses them.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := deleteFlags.NewClient(false)
	if err != nil {
		return err
	}

	err = cli.WithProgress(deleteFlags.Quiet, "Tearing down workflow "+args[0], func() error {
		return c.Delete(cmd.Context(), args[0])
	})
	if err != nil {
		return err
	}
	if !deleteFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s torn down\n", args[0])
	}
	return nil
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cli.RegisterConnectionFlags(deleteCmd, &deleteFlags)
}
