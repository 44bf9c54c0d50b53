package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/config"
	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/logging"
	"github.com/nvandessel/coopindex/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coopindex",
		Short: "Cooperation index of the reputation donation game",
		Long: `coopindex computes the long-run cooperation rate of a finite population
playing a donation game with reputation levels and threshold strategies.

It solves the reputation chain of every population composition, the
strategy-fixation chain over thresholds, and combines them into a single
cooperation index.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.coopindex/config.yaml)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Neither read nor write the result cache")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newIndexCmd(),
		newFixationCmd(),
		newSweepCmd(),
		newDonateCmd(),
		newConfigCmd(),
		newCacheCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads and validates configuration, honouring --config.
func loadConfig(cmd *cobra.Command) (*config.CoopConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

// addGameFlags registers per-parameter override flags on cmd.
func addGameFlags(cmd *cobra.Command) {
	cmd.Flags().Int("agents", 0, "Population size N (default from config)")
	cmd.Flags().Int("levels", 0, "Number of reputation levels R (default from config)")
	cmd.Flags().Float64("assessment-error", 0, "Probability a donor fails to act")
	cmd.Flags().Float64("perception-error", 0, "Probability a donor misperceives reputation")
	cmd.Flags().Float64("generosity", 0, "Probability of donating below threshold")
	cmd.Flags().Float64("donate", 0, "Donor utility per donation")
	cmd.Flags().Float64("receive", 0, "Recipient utility per donation")
	cmd.Flags().Float64("beta", 0, "Selection intensity")
}

// gameParams starts from the configured params and applies every flag the
// user set explicitly.
func gameParams(cmd *cobra.Command, cfg *config.CoopConfig) game.Params {
	p := cfg.Game
	flags := cmd.Flags()

	if flags.Changed("agents") {
		p.NumAgents, _ = flags.GetInt("agents")
	}
	if flags.Changed("levels") {
		p.Levels, _ = flags.GetInt("levels")
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"assessment-error", &p.Assessment},
		{"perception-error", &p.Perception},
		{"generosity", &p.Generosity},
		{"donate", &p.Donate},
		{"receive", &p.Receive},
		{"beta", &p.Beta},
	}
	for _, f := range floats {
		if flags.Changed(f.name) {
			*f.dst, _ = flags.GetFloat64(f.name)
		}
	}
	return p
}

// newEngine builds an engine with logging and the result cache configured
// from cfg. The returned cleanup closes the event log and the cache.
func newEngine(cfg *config.CoopConfig) (*cooperation.Engine, *slog.Logger, func()) {
	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	events := logging.NewEventLogger(cfg.Logging.TraceDir, cfg.Logging.Level)

	engine := cooperation.NewEngine(cfg.Solver, cfg.Workers)
	engine.SetLogger(logger, events)

	results := openCache(cfg, logger)
	if results != nil {
		engine.SetStore(results)
	}

	return engine, logger, func() {
		if results != nil {
			results.Close()
		}
		events.Close()
	}
}

// openCache opens the result cache, or returns nil when it is disabled or
// cannot be opened. A broken cache only costs recomputation.
func openCache(cfg *config.CoopConfig, logger *slog.Logger) *store.SQLiteResultStore {
	if !cfg.Cache.Enabled {
		return nil
	}
	results, err := openCachePath(cfg)
	if err != nil {
		logger.Warn("result cache unavailable", "error", err)
		return nil
	}
	return results
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
