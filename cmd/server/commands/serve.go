package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/dmwire-server/internal/app"
	"github.com/vovakirdan/dmwire-server/internal/config"
	"github.com/vovakirdan/dmwire-server/internal/log"
)

var (
	flagAddr     string
	flagDBPath   string
	flagLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		bootstrapLogger := log.New("info")

		cfg, path, err := config.Load(bootstrapLogger, configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags win over file and env values.
		if cmd.Flags().Changed("addr") {
			cfg.Addr = flagAddr
		}
		if cmd.Flags().Changed("db") {
			cfg.DatabasePath = flagDBPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}

		logger := log.New(cfg.LogLevel)
		logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting dmwire server")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}

		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "dmwire.db", "path to the SQLite database")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
