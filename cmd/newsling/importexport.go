// ABOUTME: OPML import and export commands with live progress output
// ABOUTME: Import reports added/updated/failed; failures never abort the rest

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/newsling/newsling/internal/opml"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import subscriptions from an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := opml.ParseFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to parse OPML: %w", err)
		}

		bulk, err := newImporter()
		if err != nil {
			return err
		}

		events, cancel := bulk.SubscribeProgress()
		defer cancel()
		done := make(chan struct{})
		go func() {
			for range events {
				p := bulk.Progress()
				if p.Total > 0 {
					fmt.Printf("\r  %d/%d", p.Imported, p.Total)
				}
			}
			close(done)
		}()

		report, err := bulk.Import(cmd.Context(), doc)
		cancel()
		<-done
		fmt.Println()
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("Imported: %d added, %d updated, %d failed",
			report.Added, report.Updated, report.Failed)
		for _, e := range report.Errors {
			color.Red("  %s: %s", e.URL, e.Reason)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export subscriptions to OPML",
	Long:  "Export all feeds with their preference attributes; writes to stdout when no file is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bulk, err := newImporter()
		if err != nil {
			return err
		}

		doc, err := bulk.Export()
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		if len(args) == 1 {
			if err := doc.Save(args[0]); err != nil {
				return fmt.Errorf("failed to write OPML: %w", err)
			}
			color.Green("Exported %d feeds to %s", len(doc.Outlines), args[0])
			return nil
		}
		return doc.Write(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
