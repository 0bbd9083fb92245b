// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, opens the cache, and builds the active transport on demand

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/newsling/newsling/internal/config"
	"github.com/newsling/newsling/internal/importer"
	"github.com/newsling/newsling/internal/remote"
	"github.com/newsling/newsling/internal/storage"
	syncengine "github.com/newsling/newsling/internal/sync"
)

var (
	configPath string
	cfg        *config.Config
	store      storage.Store

	// exitCode lets commands (the job runner) map results to scheduler exit
	// codes without abusing error returns.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "newsling",
	Short: "Feed-reading client synced with a News service",
	Long: `newsling keeps a local cache of feeds and articles in sync with a
remote News service, or runs fully standalone against the feeds themselves.

The cache is local-first: marking entries read or bookmarked works offline
and is pushed to the remote on the next sync.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = logrus.WarnLevel
		}
		logrus.SetLevel(level)

		store, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close cache: %w", err)
			}
		}
		return nil
	},
}

// newEngine builds the sync engine over the configured transport. The
// transport is constructed here, not at startup, so read-only commands never
// need one.
func newEngine() (*syncengine.Engine, error) {
	api, err := newRemote()
	if err != nil {
		return nil, err
	}
	engine := syncengine.New(store, api)
	engine.SetPageSize(cfg.Sync.PageSize)
	return engine, nil
}

func newRemote() (remote.API, error) {
	api, err := cfg.NewRemote(store)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}
	return api, nil
}

// newImporter builds the bulk import/export engine.
func newImporter() (*importer.Engine, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	return importer.New(store, engine), nil
}

func Execute() (int, error) {
	err := rootCmd.Execute()
	return exitCode, err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: XDG config dir)")
}
