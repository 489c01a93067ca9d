package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/pipoca/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// ErrMissingTable is returned when a required table is absent after migration.
var ErrMissingTable = errors.New("missing table after migration")

// requiredTables must exist once migrations have run.
var requiredTables = []string{"users", "addresses", "telephones", "occupations", "profiles", "permissions"}

// Migrate runs AutoMigrate for all models.
// Referenced tables come first so foreign keys can be declared.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Reference data
		&models.Address{},
		&models.Telephone{},
		&models.Occupation{},
		// Authorization
		&models.Permission{},
		&models.Profile{},
		// Accounts
		&models.User{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return CheckTables(db)
}

// CheckTables verifies that every required table exists.
func CheckTables(db *gorm.DB) error {
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("%w: %s", ErrMissingTable, table)
		}
	}
	return nil
}

// RunSQLMigrations applies the versioned SQL files in dir using golang-migrate.
// Only postgres URLs are supported.
func RunSQLMigrations(dir, databaseURL string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
