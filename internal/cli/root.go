// Package cli provides the command-line interface for the trading terminal.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/chains"
	"ibkr-terminal/internal/config"
	"ibkr-terminal/internal/store"
	"ibkr-terminal/internal/trading"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Broker  broker.Broker
	Feed    broker.QuoteFeed
	Cache   store.KV
	Planner *trading.Planner
	Chains  *chains.Service
}

// NewApp wires the application services around a broker connection and
// quote feed. The cache store falls back to process memory when the
// on-disk database cannot be opened.
func NewApp(cfg *config.Config, logger zerolog.Logger, b broker.Broker, feed broker.QuoteFeed) *App {
	var kv store.KV
	kv, err := store.NewSQLiteKV(cfg.Cache.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("cache database unavailable, using in-memory cache")
		kv = store.NewMemoryKV()
	}

	gate := trading.NewGreeksGate(feed, cfg.Eviction.GreeksTimeout, cfg.Eviction.GreeksPollInterval, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Broker:  b,
		Feed:    feed,
		Cache:   kv,
		Planner: trading.NewPlanner(b, feed, gate, logger),
		Chains:  chains.NewService(b, kv, cfg.Chains, cfg.Cache, cfg.ExpiryLocation(), logger),
	}
}

// Close releases application resources.
func (a *App) Close() error {
	return a.Cache.Close()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ibkr-terminal",
		Short:   "Interactive trading terminal",
		Version: Version,
		Long:    "Trading terminal for position eviction, option chain lookup, and portfolio display.",
	}

	rootCmd.AddCommand(newEvictCmd(app))
	rootCmd.AddCommand(newChainsCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))

	return rootCmd
}
