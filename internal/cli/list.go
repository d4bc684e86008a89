package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/property"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all properties",
		Long:  "List every published property with its broker, newest first.",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	svc, _, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	props, err := svc.ListWithBroker()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		if props == nil {
			props = []*property.PropertyWithBroker{}
		}
		return printJSON(out, props)
	}

	return printPropertyTable(out, props)
}
