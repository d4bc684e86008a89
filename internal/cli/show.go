package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/property"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Long:  "Show full details for a property, including its broker and images.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

// parseID parses a positive property ID argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid property ID: %s", arg)
	}
	return id, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, _, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	p, err := svc.GetWithBroker(id)
	if errors.Is(err, property.ErrNotFound) {
		return fmt.Errorf("property #%d not found", id)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, p)
	}

	printPropertySummary(out, p)
	return nil
}
