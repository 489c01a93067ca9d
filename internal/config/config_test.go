package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DATABASE_URL", "SECRET_KEY", "CORS_ALLOWED_ORIGINS", "TOKEN_TTL", "EMAIL_BACKEND", "DEV"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:9000"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.CORS.AllowAll)
	assert.Equal(t, "console", cfg.Mail.Backend)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pipoca.sqlite3", cfg.Database.URL)
	assert.NotEmpty(t, cfg.App.SecretKey, "dev gets a fallback secret")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("TOKEN_TTL", "3600")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DB_DEBUG", "TRUE")

	cfg := Load()
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Database.Debug)
}

func TestValidate_Errors(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "mysql"},
		App:      AppConfig{Dev: false},
		Mail:     MailConfig{Backend: "pigeon"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "SECRET_KEY")
	assert.Contains(t, err.Error(), "EMAIL_BACKEND")
}

func TestDatabaseConfig_Strings(t *testing.T) {
	d := DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: 5432, User: "u", Password: "p@ss", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p@ss dbname=n sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p%40ss@h:5432/n?sslmode=disable", d.ConnURL())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.ConnURL())

	lite := DatabaseConfig{Driver: DriverSQLite, URL: "x.sqlite3"}
	assert.Equal(t, "x.sqlite3", lite.DSN())
}
