package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrbrocoli/grocer/backend/internal/database"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether each has been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		statuses, err := database.Status(db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Fprintf(out, "%-8s %s\n", state, s.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
