package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/property"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a property",
		Long:  "Remove a property and all its images, on behalf of its broker.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, _, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	p, err := svc.Get(id)
	if errors.Is(err, property.ErrNotFound) {
		return fmt.Errorf("property #%d not found", id)
	}
	if err != nil {
		return err
	}

	if err := svc.Delete(p.BrokerID, id); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, map[string]interface{}{
			"id":      id,
			"removed": true,
		})
	}

	fmt.Fprintf(out, "Property #%d removed.\n", id)
	return nil
}
