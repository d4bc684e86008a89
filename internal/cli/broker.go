package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/user"
)

func newBrokerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Manage broker accounts",
	}
	cmd.AddCommand(newBrokerAddCmd(), newBrokerListCmd())
	return cmd
}

func newBrokerAddCmd() *cobra.Command {
	var first, last, password string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Register a broker",
		Long:  "Register a broker account. The password is read from --password or HB_BROKER_PASSWORD.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("HB_BROKER_PASSWORD")
			}
			return runBrokerAdd(cmd, user.User{
				FirstName: first,
				LastName:  last,
				Email:     args[0],
				Role:      user.Broker,
			}, password)
		},
	}

	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&password, "password", "", "login password")

	return cmd
}

func runBrokerAdd(cmd *cobra.Command, u user.User, password string) error {
	_, users, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	created, err := users.Create(u, password)
	if errors.Is(err, user.ErrEmailTaken) {
		return fmt.Errorf("a user with email %s already exists", u.Email)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, created)
	}

	fmt.Fprintf(out, "Broker #%d added (%s).\n", created.ID, created.Email)
	return nil
}

func newBrokerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List brokers",
		Args:  cobra.NoArgs,
		RunE:  runBrokerList,
	}
}

func runBrokerList(cmd *cobra.Command, args []string) error {
	_, users, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	brokers, err := users.List(user.Broker)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		if brokers == nil {
			brokers = []*user.User{}
		}
		return printJSON(out, brokers)
	}

	return printUserTable(out, brokers)
}
