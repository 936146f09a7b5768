package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"lexledger"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host         string `envconfig:"DB_HOST" default:"localhost"`
		Port         int    `envconfig:"DB_PORT" default:"5432"`
		User         string `envconfig:"DB_USER" default:"lexledger_app"`
		Password     string `envconfig:"DB_PASSWORD" default:""`
		Name         string `envconfig:"DB_NAME" default:"lexledger"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		// Shared HS256 secret of the identity service that signs access tokens.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Attachments struct {
		TempTTL         time.Duration `envconfig:"ATTACHMENT_TEMP_TTL" default:"24h"`
		OrphanGrace     time.Duration `envconfig:"ATTACHMENT_ORPHAN_GRACE" default:"72h"`
		ClaimStaleAfter time.Duration `envconfig:"ATTACHMENT_CLAIM_STALE_AFTER" default:"15m"`
		ClaimBatch      int           `envconfig:"ATTACHMENT_CLAIM_BATCH" default:"100"`
	}

	Pagination struct {
		DefaultLimit int `envconfig:"PAGE_DEFAULT_LIMIT" default:"20"`
		MaxLimit     int `envconfig:"PAGE_MAX_LIMIT" default:"100"`
	}

	Import struct {
		ProfilesFile string `envconfig:"IMPORT_PROFILES_FILE"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Pagination.DefaultLimit > cfg.Pagination.MaxLimit {
		return nil, fmt.Errorf("PAGE_DEFAULT_LIMIT (%d) exceeds PAGE_MAX_LIMIT (%d)",
			cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit)
	}

	return &cfg, nil
}
