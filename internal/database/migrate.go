package database

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrbrocoli/grocer/backend/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationStatus describes one migration file
type MigrationStatus struct {
	Name    string
	Applied bool
}

// RunMigrations applies pending migrations. Postgres runs the embedded SQL
// files in name order; sqlite uses gorm auto-migration.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	if db.Dialector.Name() == "sqlite" {
		log.Info("using GORM auto-migration for SQLite")
		return db.AutoMigrate(&models.GroceryPlanRecord{})
	}

	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		applied, err := isApplied(db, name)
		if err != nil {
			return err
		}
		if applied {
			log.Debug("skipping migration (already applied)", zap.String("name", name))
			continue
		}

		content, err := fs.ReadFile(migrationFiles, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(content)).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
			if err := tx.Exec("INSERT INTO migrations (name) VALUES (?)", name).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("applied migration", zap.String("name", name))
	}

	return nil
}

// Status lists every embedded migration and whether it has been applied.
func Status(db *gorm.DB) ([]MigrationStatus, error) {
	names, err := migrationNames()
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, len(names))
	if db.Dialector.Name() == "sqlite" {
		applied := db.Migrator().HasTable(&models.GroceryPlanRecord{})
		for i, name := range names {
			statuses[i] = MigrationStatus{Name: name, Applied: applied}
		}
		return statuses, nil
	}

	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}
	for i, name := range names {
		applied, err := isApplied(db, name)
		if err != nil {
			return nil, err
		}
		statuses[i] = MigrationStatus{Name: name, Applied: applied}
	}
	return statuses, nil
}

func ensureMigrationsTable(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func isApplied(db *gorm.DB, name string) (bool, error) {
	var count int64
	if err := db.Table("migrations").Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
