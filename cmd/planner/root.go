package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Textbook ingestion and lesson scheduling service",
	Long: `Planner ingests textbooks, recovers their chapter structure and spreads
the chapters over a teaching calendar.

Commands:
  - serve:   run the HTTP API with background deep indexing and cron jobs
  - backup:  export all documents and lessons as JSON
  - restore: replace all documents and lessons from a JSON backup
  - preview: show the teaching days and lesson titles a schedule would produce`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(previewCmd)
}
