// ABOUTME: Feed management commands for adding, listing, renaming and removing feeds
// ABOUTME: Mutations go through the sync engine so remote and cache stay consistent

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"f"},
	Short:   "Manage feed subscriptions",
	Long:    "Add, list, rename, and remove feed subscriptions",
}

var feedAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Subscribe to a feed",
	Long:  "Subscribe to a feed URL through the active transport and pull its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		feed, err := engine.AddFeed(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to add feed: %w", err)
		}

		title := feed.SelfLink
		if feed.Title != nil {
			title = *feed.Title
		}
		color.Green("Added: %s", title)
		fmt.Printf("  id:  %s\n  url: %s\n", feed.ID, feed.SelfLink)
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		feeds, err := store.ListFeeds()
		if err != nil {
			return fmt.Errorf("failed to list feeds: %w", err)
		}
		if len(feeds) == 0 {
			fmt.Println("No feeds. Add one with 'newsling feed add <url>'.")
			return nil
		}

		for _, feed := range feeds {
			title := "(untitled)"
			if feed.Title != nil {
				title = *feed.Title
			}
			fmt.Printf("%s  %s\n", feed.ID, title)
			fmt.Printf("    %s\n", feed.SelfLink)
			if feed.LastFetchError != nil {
				color.Red("    last error: %s", *feed.LastFetchError)
			}
		}

		stats, err := store.GetOverallStats()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		fmt.Printf("\n%d feeds, %d entries (%d unread)\n",
			stats.TotalFeeds, stats.TotalEntries, stats.UnreadCount)
		return nil
	},
}

var feedRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a feed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.RenameFeed(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to rename feed: %w", err)
		}
		color.Green("Renamed feed %s", args[0])
		return nil
	},
}

var feedDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a feed and its entries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.DeleteFeed(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete feed: %w", err)
		}
		color.Green("Deleted feed %s", args[0])
		return nil
	},
}

func init() {
	feedCmd.AddCommand(feedAddCmd)
	feedCmd.AddCommand(feedListCmd)
	feedCmd.AddCommand(feedRenameCmd)
	feedCmd.AddCommand(feedDeleteCmd)
	rootCmd.AddCommand(feedCmd)
}
