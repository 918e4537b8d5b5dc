package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-realtime-template/internal/infrastructure/config"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/infrastructure/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := persistence.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(cmd.Context())
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"dialect": db.Dialect(),
		"applied": len(applied),
	}).Info("Migrations complete")
	return nil
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	lCfg, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLogrusLogger(lCfg), nil
}
