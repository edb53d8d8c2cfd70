package main

import (
	"github.com/bwise1/gunaso/internal/db"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.New(cfg.Dsn)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		names, _ := db.MigrationNames()
		logger.Info("database is up to date", zap.Int("migrations", len(names)))
		return nil
	},
}
