package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// CacheTTL bounds staleness after a missed invalidation.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// JWKSURL takes precedence over JWTSecret when both are set.
	JWTSecret string `env:"JWT_SECRET"`
	JWKSURL   string `env:"JWKS_URL"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	DocumentBucket string `env:"DOCUMENT_BUCKET" envDefault:"pgdesk-documents"`
}

// Load parses the configuration from process environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
