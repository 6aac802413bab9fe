package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

const envDevelopment = "development"

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string        `env:"ENV" envDefault:"development"`
	Port          string        `env:"PORT" envDefault:"8080"`
	DBPath        string        `env:"DB_PATH" envDefault:"./dev.db"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	SessionSecret string        `env:"SESSION_SECRET"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"1h"`
	TiersFile     string        `env:"TIERS_FILE"`
	Currency      string        `env:"CURRENCY" envDefault:"EUR"`

	warnings []string
}

// ErrSessionSecretRequired is returned outside development when SESSION_SECRET is empty.
var ErrSessionSecretRequired = errors.New("SESSION_SECRET is required outside development")

const generatedSecretBytes = 32

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	// Production should inject real environment variables; a missing file is fine.
	if _, err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.AdminEmail == "" {
		cfg.warnings = append(cfg.warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.warnings = append(cfg.warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		if !cfg.IsDev() {
			return nil, ErrSessionSecretRequired
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
		cfg.warnings = append(cfg.warnings, "SESSION_SECRET is not set; sessions use a random secret and end on restart")
	}

	return &cfg, nil
}

// Warnings lists configuration problems that did not stop Load.
func (c *Config) Warnings() []string {
	return c.warnings
}

func randomSecret() (string, error) {
	b := make([]byte, generatedSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return c.Env == envDevelopment
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
