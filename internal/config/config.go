// Package config loads house-broker settings from a YAML file, a .env file
// and HB_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	Database Database `yaml:"database"`
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Logging  Logging  `yaml:"logging"`
}

// Database selects the storage engine.
type Database struct {
	// Driver is "sqlite3" or "pgx".
	Driver string `yaml:"driver,omitempty"`
	// DSN is the Postgres connection string.
	DSN string `yaml:"dsn,omitempty"`
	// Path is the SQLite file.
	Path string `yaml:"path,omitempty"`
}

// Source returns the connection source for the configured driver.
func (d Database) Source() string {
	if d.Driver == "pgx" || d.Driver == "postgres" {
		return d.DSN
	}
	return d.Path
}

// Server configures the HTTP listener.
type Server struct {
	Listen string `yaml:"listen,omitempty"`
}

// Auth configures token signing.
type Auth struct {
	JWTSecret string        `yaml:"jwt_secret,omitempty"`
	TokenTTL  time.Duration `yaml:"token_ttl,omitempty"`
}

// Logging configures the default logger.
type Logging struct {
	Level   string `yaml:"level,omitempty"`
	DevMode bool   `yaml:"dev_mode,omitempty"`
}

// Default returns settings used when nothing else is configured.
func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite3"},
		Server:   Server{Listen: ":8080"},
		Auth:     Auth{TokenTTL: 24 * time.Hour},
		Logging:  Logging{Level: "info"},
	}
}

// DefaultPath returns ~/.config/hb/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hb", "config.yaml"), nil
}

// Load builds a Config from defaults, the YAML file at path, a .env file in
// the working directory and the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnv overrides cfg with any HB_* variables that are set.
func applyEnv(cfg *Config) error {
	setString("HB_DB_DRIVER", &cfg.Database.Driver)
	setString("HB_DB_DSN", &cfg.Database.DSN)
	setString("HB_DB_PATH", &cfg.Database.Path)
	setString("HB_LISTEN", &cfg.Server.Listen)
	setString("HB_JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("HB_LOG_LEVEL", &cfg.Logging.Level)

	if v := os.Getenv("HB_JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing HB_JWT_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = ttl
	}

	if v := os.Getenv("HB_DEV_MODE"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing HB_DEV_MODE: %w", err)
		}
		cfg.Logging.DevMode = dev
	}

	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes cfg as YAML to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
