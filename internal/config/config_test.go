package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
http:
  addr: ":9000"
database:
  driver: pgx
  dsn: "postgres://energy@db.example.com:5432/energy?sslmode=disable"
  password: "ignored-from-yaml"
bloom:
  enabled: true
  token_url: "https://bloom.example.com/auth"
  site_url: "https://bloom.example.com/sites"
  site_data_url: "https://bloom.example.com/data/site"
  username: "campus"
  daily_at: "01:30"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("BLOOM_PASSWORD", "bloom-pw")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "bloom-pw", cfg.Bloom.Password)
	assert.Equal(t, "01:30", cfg.Bloom.DailyAt)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)

	dsn, err := cfg.Database.ConnString()
	require.NoError(t, err)
	assert.Equal(t, "postgres://energy:pw@db.example.com:5432/energy?sslmode=disable", dsn)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "_time_format=sqlite")
	assert.Equal(t, int64(1), cfg.Ingest.UserID)
	assert.Equal(t, "00:00", cfg.Bloom.DailyAt)
	assert.False(t, cfg.Bloom.Enabled)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BLOOM_ENABLED", "true")
	_, err = Load("")
	require.ErrorContains(t, err, "token_url")

	t.Setenv("BLOOM_ENABLED", "false")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load("")
	require.ErrorContains(t, err, "mysql")
}
