package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scrumboard/internal/config"
	"scrumboard/internal/lifecycle"
	"scrumboard/internal/service"
	"scrumboard/internal/storage/sqlite"
	"scrumboard/internal/telemetry"
)

const version = "1.0.0"

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scrumboard",
		Short:         "Scrum sprint and story lifecycle board.",
		Long:          `scrumboard serves the Scrum board API and runs maintenance jobs against its SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file.")
	flags.String("db-path", "data/scrumboard.db", "Path to sqlite database file.")
	flags.String("timezone", lifecycle.DefaultTimezone, "Time zone that decides the current day.")
	flags.String("log-level", "info", "Log level: debug, info, warn or error.")

	root.AddCommand(newServeCmd(), newReconcileCmd(), newSeedCmd(), newBurndownCmd())
	return root
}

// app is what every subcommand needs: the configuration and an open board.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *sqlite.Store
	board    *service.Manager
	shutdown telemetry.Shutdown
}

// openApp loads the configuration and opens the board. Telemetry is
// installed before the service is built so that it picks up the global
// tracer and meter.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	calendar, err := lifecycle.NewCalendar(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled: cfg.Otel.Enabled,
		Stdout:  cfg.Otel.Stdout,
	}, "scrumboard", version)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	board := service.New(store,
		service.WithLogger(logger),
		service.WithCalendar(calendar),
	)
	return &app{cfg: cfg, logger: logger, store: store, board: board, shutdown: shutdown}, nil
}

// Close flushes telemetry and closes the database.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.shutdown(ctx), a.store.Close())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
