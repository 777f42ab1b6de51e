package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/metronai/costmeter/internal/config"
	"github.com/metronai/costmeter/pkg/pricing"
	"github.com/metronai/costmeter/pkg/storage"
	"github.com/metronai/costmeter/pkg/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "costmeter",
	Short: "costmeter - per-call LLM cost tracking and reporting",
	Long: `costmeter records per-call cost, token usage, and latency for LLM API
calls, attributes each record to a user and a feature, and answers aggregate
cost queries over an embedded local database.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.costmeter/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// loadTable builds the pricing table: embedded defaults plus any overrides
// from the configured pricing directory.
func loadTable(cfg *config.Config) (*pricing.Table, error) {
	return pricing.TableWithOverrides(cfg.Pricing.Dir)
}

// newTracker creates a fully wired tracker. The caller owns the returned
// storage and must close it.
func newTracker(cfg *config.Config) (*tracker.Tracker, storage.Storage, error) {
	table, err := loadTable(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	opts := []tracker.Option{
		tracker.WithLogger(newLogger(cfg)),
		tracker.WithOrgID(cfg.Defaults.Org),
	}
	if cfg.BestEffort() {
		opts = append(opts, tracker.WithBestEffort())
	}

	return tracker.New(store, table, opts...), store, nil
}
