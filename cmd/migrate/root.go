package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrbrocoli/grocer/backend/config"
	"github.com/mrbrocoli/grocer/backend/internal/database"
	"github.com/mrbrocoli/grocer/backend/internal/logging"
)

var rootFlags struct {
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the grocery history schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "override LOG_LEVEL")
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase loads configuration and connects with the configured driver.
func openDatabase() (*gorm.DB, *zap.Logger, error) {
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	logger, err := logging.New(level, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewGorm(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, logger, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
