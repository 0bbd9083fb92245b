// ABOUTME: Sync command running initial or incremental sync in the foreground
// ABOUTME: Drives the entries-view state machine and prints its phases and progress

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	syncengine "github.com/newsling/newsling/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the cache with the remote",
	Long: `Run one sync: push pending read/bookmark edits, then pull feeds and
new entries. The first run performs a full initial sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		conf, err := store.GetConf()
		if err != nil {
			return fmt.Errorf("failed to read conf: %w", err)
		}

		machine := syncengine.NewStateMachine()
		machine.Loaded(conf.InitialSyncCompleted)

		if machine.State().Phase == syncengine.PhasePerformingInitialSync {
			fmt.Println("First sync, pulling everything...")

			events, cancel := engine.SubscribeProgress()
			defer cancel()
			done := make(chan struct{})
			go func() {
				for range events {
					machine.Progressed(engine.Progress())
					if p := machine.State().Progress; p.Imported > 0 {
						fmt.Printf("\r  %d entries", p.Imported)
					}
				}
				close(done)
			}()

			err := engine.PerformInitialSync(cmd.Context())
			cancel()
			<-done
			fmt.Println()
			if err != nil {
				machine.Failed(err)
				return fmt.Errorf("initial sync failed: %w", machine.State().Cause)
			}
			machine.Completed()
			color.Green("Initial sync complete")
			return nil
		}

		if err := engine.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		machine.Completed()

		stats, err := store.GetOverallStats()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		color.Green("Synced")
		fmt.Printf("  %d feeds, %d entries (%d unread)\n",
			stats.TotalFeeds, stats.TotalEntries, stats.UnreadCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
