// Package db opens the database, applies migrations and seeds reference data.
package db

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/pipoca/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// connectAttempts gives Postgres time to start alongside the app.
const connectAttempts = 5

var passwordPattern = regexp.MustCompile(`(password=)(\S+)`)

// MaskDSN hides the password in key=value and URL connection strings.
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return passwordPattern.ReplaceAllString(dsn, `${1}***`)
}

// Open connects with the configured driver. Driver errors for unique
// constraints are translated to gorm.ErrDuplicatedKey, and sqlite
// connections enforce foreign keys.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	var dsn string
	switch cfg.Driver {
	case config.DriverSQLite, "":
		dsn = sqliteDSN(cfg.URL)
		dialector = sqlite.Open(dsn)
	case config.DriverPostgres:
		dsn = cfg.URL
		if dsn == "" {
			dsn = cfg.DSN()
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gcfg)
		if err == nil || cfg.Driver != config.DriverPostgres {
			break
		}
		log.Warn("database connection failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	log.Info("database connected", zap.String("driver", dialector.Name()), zap.String("dsn", MaskDSN(dsn)))
	return db, nil
}

// sqliteDSN defaults to pipoca.sqlite3 and turns foreign keys on.
func sqliteDSN(path string) string {
	if path == "" {
		path = "pipoca.sqlite3"
	}
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
