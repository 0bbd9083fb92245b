// ABOUTME: Entry commands for listing and flagging articles
// ABOUTME: Flag edits apply to the cache instantly; the push to the remote is best-effort

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/newsling/newsling/internal/storage"
)

var entryCmd = &cobra.Command{
	Use:     "entry",
	Aliases: []string{"e"},
	Short:   "List and flag entries",
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		unread, _ := cmd.Flags().GetBool("unread")
		feedID, _ := cmd.Flags().GetString("feed")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := &storage.EntryFilter{Limit: &limit}
		if unread {
			filter.UnreadOnly = &unread
		}
		if feedID != "" {
			filter.FeedID = &feedID
		}

		entries, err := store.ListEntries(filter)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}

		for _, entry := range entries {
			marker := " "
			if !entry.Read {
				marker = color.New(color.FgCyan).Sprint("*")
			}
			star := " "
			if entry.Bookmarked {
				star = color.New(color.FgYellow).Sprint("#")
			}
			title := "(untitled)"
			if entry.Title != nil {
				title = *entry.Title
			}
			date := ""
			if entry.Published != nil {
				date = entry.Published.Format("2006-01-02")
			}
			id := entry.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s%s %-8s  %-10s  %s\n", marker, star, id, date, title)
		}
		return nil
	},
}

// flagEntry applies a local flag edit and pushes it best-effort. The push
// failing is not an error: the edit is pending and the next sync retries it.
func flagEntry(cmd *cobra.Command, id string, apply func(string) error) error {
	if err := apply(id); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	if err := engine.SyncEntryFlags(cmd.Context()); err != nil {
		logrus.WithError(err).Debug("flag push deferred to next sync")
	}
	return nil
}

var entryReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark an entry as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return flagEntry(cmd, args[0], func(id string) error {
			return store.SetEntryRead(id, true)
		})
	},
}

var entryUnreadCmd = &cobra.Command{
	Use:   "unread <id>",
	Short: "Mark an entry as unread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return flagEntry(cmd, args[0], func(id string) error {
			return store.SetEntryRead(id, false)
		})
	},
}

var entryBookmarkCmd = &cobra.Command{
	Use:   "bookmark <id>",
	Short: "Bookmark an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return flagEntry(cmd, args[0], func(id string) error {
			return store.SetEntryBookmarked(id, true)
		})
	},
}

var entryUnbookmarkCmd = &cobra.Command{
	Use:   "unbookmark <id>",
	Short: "Remove an entry bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return flagEntry(cmd, args[0], func(id string) error {
			return store.SetEntryBookmarked(id, false)
		})
	},
}

var entryDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download an entry's enclosure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.DownloadEnclosure(cmd.Context(), args[0], cfg.Database.EnclosureDir); err != nil {
			return fmt.Errorf("failed to download enclosure: %w", err)
		}
		color.Green("Downloaded enclosure for %s", args[0])
		return nil
	},
}

func init() {
	entryListCmd.Flags().Bool("unread", false, "show only unread entries")
	entryListCmd.Flags().String("feed", "", "restrict to one feed id")
	entryListCmd.Flags().Int("limit", 50, "maximum entries to show")

	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryReadCmd)
	entryCmd.AddCommand(entryUnreadCmd)
	entryCmd.AddCommand(entryBookmarkCmd)
	entryCmd.AddCommand(entryUnbookmarkCmd)
	entryCmd.AddCommand(entryDownloadCmd)
	rootCmd.AddCommand(entryCmd)
}
