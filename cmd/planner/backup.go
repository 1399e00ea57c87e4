package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahilchouksey/lesson-planner/app"
	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/services"
)

var (
	backupOutput string
	restoreInput string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write all documents and lessons to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		backupService, closeDB, err := openBackupService()
		if err != nil {
			return err
		}
		defer closeDB()

		f, err := os.Create(backupOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", backupOutput, err)
		}
		defer f.Close()

		snap, err := backupService.WriteBackup(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents and %d lessons to %s\n",
			len(snap.Documents), len(snap.Lessons), backupOutput)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace all documents and lessons with a JSON backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreInput == "" {
			return fmt.Errorf("--input is required")
		}

		var r io.Reader = cmd.InOrStdin()
		if restoreInput != "-" {
			f, err := os.Open(restoreInput)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", restoreInput, err)
			}
			defer f.Close()
			r = f
		}

		backupService, closeDB, err := openBackupService()
		if err != nil {
			return err
		}
		defer closeDB()

		result, err := backupService.Restore(cmd.Context(), r)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d documents and %d lessons\n", result.Documents, result.Lessons)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "lesson-planner-backup.json", "backup file")
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "backup file to restore, - for stdin")
}

// openBackupService connects to the configured database. No server is running
// in this process, so there are no deep-index tasks to stop.
func openBackupService() (*services.BackupService, func(), error) {
	env, log, err := app.LoadEnvironment()
	if err != nil {
		return nil, nil, err
	}
	store, err := database.StartGORM(env, log)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(); err != nil {
		store.Close()
		return nil, nil, err
	}
	closeDB := func() {
		store.Close()
		log.Sync()
	}
	return services.NewBackupService(store.GetDB(), nil, log), closeDB, nil
}
