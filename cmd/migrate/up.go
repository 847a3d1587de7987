package main

import (
	"github.com/spf13/cobra"

	"github.com/mrbrocoli/grocer/backend/internal/database"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, logger, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		defer func() { _ = logger.Sync() }()

		if err := database.RunMigrations(db, logger); err != nil {
			return err
		}
		logger.Info("migrations complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
}
