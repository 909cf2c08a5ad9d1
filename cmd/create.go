package cmd

import (
	"github.com/spf13/cobra"

	"wkfmanager/internal/api"
	"wkfmanager/internal/cli"
)

var (
	createFlags     cli.CommandFlags
	createSpecFlags specFlags
)

// createCmd deploys a new workflow.
var createCmd = &cobra.Command{
	Use:   "create STORE_ID",
	Short: "Deploy a new workflow",
	Long: `Deploys a new workflow for a store and waits until every component is
healthy. When a component fails, the engine tears the attempt down again and
the command exits with code 3.

Examples:
  wkfmanager create 7098813e-4624-462a-81a1-7e0e4e67631d --method edge --components cass,restocker
  wkfmanager create store-a -f workflow.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	spec, err := createSpecFlags.spec()
	if err != nil {
		return err
	}
	c, err := createFlags.NewClient(false)
	if err != nil {
		return err
	}

	var created api.WorkflowSpec
	err = cli.WithProgress(createFlags.Quiet, "Deploying workflow "+args[0], func() error {
		var err error
		created, err = c.Create(cmd.Context(), args[0], spec)
		return err
	})
	if err != nil {
		return err
	}
	return createFlags.Printer(cmd).PrintWorkflow(args[0], created)
}

func registerSpecFlags(cmd *cobra.Command, f *specFlags) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Workflow request file (YAML or JSON)")
	cmd.Flags().StringVar(&f.method, "method", "", "Deployment method (persistent, edge)")
	cmd.Flags().StringSliceVar(&f.components, "components", nil, "Comma separated component list")
	cmd.Flags().StringVar(&f.origin, "origin", "", "Host that receives result notifications (default: this host)")
}

func init() {
	rootCmd.AddCommand(createCmd)
	cli.RegisterCommonFlags(createCmd, &createFlags)
	registerSpecFlags(createCmd, &createSpecFlags)
}
