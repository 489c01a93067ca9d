package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/internal/config"
	"github.com/diewo77/pipoca/internal/db"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/mail"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// setupTestDB creates a migrated in-memory SQLite database private to the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// setupFileDB creates a migrated SQLite database file so several connections
// can write to it at once.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipoca.sqlite3")
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    "file:" + path + "?_busy_timeout=10000&_txlock=immediate",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func newTestManager(t *testing.T) (*AccountManager, *gorm.DB, *mail.Outbox) {
	t.Helper()
	gdb := setupTestDB(t)
	outbox := mail.NewOutbox("webmaster@localhost")
	return NewAccountManager(gdb, auth.NewBcryptHasher(bcrypt.MinCost), outbox, nil), gdb, outbox
}

func anaFields() UserFields {
	return UserFields{
		Username:     "Ana",
		BirthDate:    models.NewDate(1990, time.January, 1),
		AudienceType: models.AudienceCurious,
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
