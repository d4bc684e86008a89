package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/auth"
	"github.com/evcraddock/house-broker/internal/logging"
	"github.com/evcraddock/house-broker/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long:  "Start an HTTP server exposing the property catalog and broker authentication.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listen, dev)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config, :8080)")
	cmd.Flags().BoolVar(&dev, "dev", false, "human-readable debug logging")

	return cmd
}

func runServe(ctx context.Context, listen string, dev bool) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if dev {
		cfg.Logging.DevMode = true
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("no JWT secret configured: run `hb config init` or set HB_JWT_SECRET")
	}
	if err := logging.Setup(cfg.Logging.DevMode, cfg.Logging.Level); err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.NewServer(database, issuer).ListenAndServe(ctx, cfg.Server.Listen)
}
