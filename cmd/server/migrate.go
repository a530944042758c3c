package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, logger).RunMigrations(); err != nil {
		return err
	}
	logger.Info("Migrations applied", zap.String("path", cfg.DBPath))
	return nil
}
