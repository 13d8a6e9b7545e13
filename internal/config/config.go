// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr string `env:"MENTIS_ADDR" envDefault:":8080"`

	// DBPath selects the SQLite file; empty keeps everything in memory.
	DBPath        string `env:"MENTIS_DB_PATH"`
	MigrationsDir string `env:"MENTIS_MIGRATIONS_DIR"`

	JWTSecret string `env:"MENTIS_JWT_SECRET" envDefault:"mentis-dev-secret"`
	// AdminPasswordHash (bcrypt) wins over the plaintext AdminPassword.
	AdminPassword     string        `env:"MENTIS_ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"MENTIS_ADMIN_PASSWORD_HASH"`
	TokenTTL          time.Duration `env:"MENTIS_TOKEN_TTL" envDefault:"2h"`

	SessionTTL    time.Duration `env:"MENTIS_SESSION_TTL" envDefault:"30m"`
	GuardInterval time.Duration `env:"MENTIS_GUARD_INTERVAL" envDefault:"30s"`

	UploadDir string `env:"MENTIS_UPLOAD_DIR" envDefault:"uploads"`
	StaticDir string `env:"MENTIS_STATIC_DIR"`
	Debug     bool   `env:"MENTIS_DEBUG"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
