// Package config loads service configuration from config.yaml with environment overrides.
// Secrets are read from the environment only.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Bloom    BloomConfig    `yaml:"bloom"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	CORSOrigins    []string      `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-separator:"," env-default:"*"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"HTTP_MAX_UPLOAD_BYTES" env-default:"33554432"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	DSN             string        `yaml:"dsn" env:"DB_DSN" env-default:"file:campus-energy.db?_time_format=sqlite"`
	Password        string        `yaml:"-" env:"DB_PASSWORD"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

// ConnString returns the DSN with the env-only password applied to postgres URLs.
func (d DatabaseConfig) ConnString() (string, error) {
	if d.Password == "" || d.Driver != DriverPostgres {
		return d.DSN, nil
	}
	u, err := url.Parse(d.DSN)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("database dsn must be a postgres url when DB_PASSWORD is set")
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, d.Password)
	return u.String(), nil
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" env:"AUTH_ENABLED" env-default:"true"`
	JWTSecret string `yaml:"-" env:"JWT_SECRET"`
}

type BloomConfig struct {
	Enabled     bool   `yaml:"enabled" env:"BLOOM_ENABLED" env-default:"false"`
	TokenURL    string `yaml:"token_url" env:"TOKEN_URL"`
	SiteURL     string `yaml:"site_url" env:"BLOOM_SITE_ID"`
	SiteDataURL string `yaml:"site_data_url" env:"BLOOM_SITE_DATA"`
	Username    string `yaml:"username" env:"BLOOM_USERNAME"`
	Password    string `yaml:"-" env:"BLOOM_PASSWORD"`
	DailyAt     string `yaml:"daily_at" env:"BLOOM_DAILY_AT" env-default:"00:00"`
}

type IngestConfig struct {
	LayoutsFile string `yaml:"layouts_file" env:"INGEST_LAYOUTS_FILE"`
	UserID      int64  `yaml:"user_id" env:"INGEST_USER_ID" env-default:"1"`
	SourcesDir  string `yaml:"sources_dir" env:"INGEST_SOURCES_DIR" env-default:"uploads"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads path (if it exists) and applies environment overrides.
// An empty path or a missing file falls back to environment and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when auth is enabled")
	}
	if c.Bloom.Enabled {
		required := []struct{ name, value string }{
			{"token_url", c.Bloom.TokenURL},
			{"site_url", c.Bloom.SiteURL},
			{"site_data_url", c.Bloom.SiteDataURL},
			{"username", c.Bloom.Username},
		}
		var missing []string
		for _, r := range required {
			if r.value == "" {
				missing = append(missing, r.name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("bloom enabled but missing: %s", strings.Join(missing, ", "))
		}
		if _, err := time.Parse("15:04", c.Bloom.DailyAt); err != nil {
			return fmt.Errorf("invalid bloom daily_at %q", c.Bloom.DailyAt)
		}
	}
	return nil
}
