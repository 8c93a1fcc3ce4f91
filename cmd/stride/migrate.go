package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/strideworks/stride/internal/config"
	"github.com/strideworks/stride/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Opening the store runs pending migrations.
		db, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		slog.Info("migrations applied", "path", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
