// Package cli defines the cobra command tree for house-broker.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/config"
	"github.com/evcraddock/house-broker/internal/db"
	"github.com/evcraddock/house-broker/internal/property"
	"github.com/evcraddock/house-broker/internal/user"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hb",
		Short:         "Publish and search property listings",
		Long:          "A property catalog for brokers and seekers. Manage listings and brokers from the CLI or serve the JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config; default: ~/.config/hb/catalog.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/hb/config.yaml)")

	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newSearchCmd(),
		newShowCmd(),
		newRemoveCmd(),
		newBrokerCmd(),
		newConfigCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// configFile returns the --config flag or the default config path.
func configFile() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// loadSettings reads the config file and applies the --db flag on top.
func loadSettings() (config.Config, error) {
	path, err := configFile()
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if flagDB != "" {
		cfg.Database = config.Database{Driver: db.DriverSQLite, Path: flagDB}
	}
	return cfg, nil
}

// openDB connects to the configured database, falling back to the default
// SQLite file when no path is set.
func openDB(cfg config.Config) (*sqlx.DB, error) {
	src := cfg.Database.Source()
	if src == "" && cfg.Database.Driver != db.DriverPostgres && cfg.Database.Driver != "postgres" {
		var err error
		src, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Connect(cfg.Database.Driver, src)
}

// openCatalog loads settings and returns the property service, the user
// store and the database handle the caller must close.
func openCatalog() (*property.Service, *user.Store, *sqlx.DB, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, nil, nil, err
	}

	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	svc := property.NewService(property.NewStore(database))
	return svc, user.NewStore(database), database, nil
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database io.Closer) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
