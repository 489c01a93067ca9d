package db

import (
	"fmt"
	"strings"
	"testing"

	"github.com/diewo77/pipoca/internal/config"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gdb, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })
	return gdb
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "pipoca.sqlite3?_foreign_keys=1", sqliteDSN(""))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=1", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "x.db?_fk=1", sqliteDSN("x.db?_fk=1"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "host=h password=*** dbname=d", MaskDSN("host=h password=secret dbname=d"))
	assert.Equal(t, "postgres://u:xxxxx@h:5432/d", MaskDSN("postgres://u:secret@h:5432/d"))
	assert.Equal(t, "file:x?mode=memory", MaskDSN("file:x?mode=memory"))
	assert.Equal(t, "postgres://h:5432/d", MaskDSN("postgres://h:5432/d"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestMigrate_CreatesTables(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Migrate(gdb))
	for _, table := range requiredTables {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
	assert.NoError(t, CheckTables(gdb))
}

func TestCheckTables_Missing(t *testing.T) {
	gdb := openTestDB(t)
	assert.ErrorIs(t, CheckTables(gdb), ErrMissingTable)
}

func TestForeignKeysEnforced(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Migrate(gdb))

	var fk int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestSeed_Idempotent(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Migrate(gdb))

	require.NoError(t, Seed(gdb))
	var perms, profiles, occupations int64
	gdb.Model(&models.Permission{}).Count(&perms)
	gdb.Model(&models.Profile{}).Count(&profiles)
	gdb.Model(&models.Occupation{}).Count(&occupations)

	require.NoError(t, Seed(gdb))
	var perms2, profiles2, occupations2 int64
	gdb.Model(&models.Permission{}).Count(&perms2)
	gdb.Model(&models.Profile{}).Count(&profiles2)
	gdb.Model(&models.Occupation{}).Count(&occupations2)

	assert.Equal(t, perms, perms2)
	assert.Equal(t, int64(3), profiles2)
	assert.Equal(t, int64(1), occupations2)
	assert.Equal(t, occupations, occupations2)
	assert.Equal(t, profiles, profiles2)

	var admin models.Profile
	require.NoError(t, gdb.Preload("Permissions").Where("name = ?", "admin").First(&admin).Error)
	require.Len(t, admin.Permissions, 1)
	assert.Equal(t, "*:*", admin.Permissions[0].Code())
	assert.True(t, admin.IsSystem)

	var occ models.Occupation
	require.NoError(t, gdb.First(&occ).Error)
	assert.Equal(t, "Autônomo", occ.Name)
}
