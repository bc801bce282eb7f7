package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"JWKS_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"JWKS_PG_PORT" env-default:"5432"`
	Database string `env:"JWKS_PG_DATABASE" env-default:"jwks_db"`
	User     string `env:"JWKS_PG_USER" env-default:"jwks"`
	Password string `env:"JWKS_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"JWKS_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// KeysConfig holds the key pool settings.
type KeysConfig struct {
	// RSA modulus size in bits for generated key pairs
	KeySize int `env:"KEY_SIZE" env-default:"2048"`

	// Number of key pairs generated at startup
	PoolSize int `env:"KEY_POOL_SIZE" env-default:"8"`

	// Backend selects the key store: memory, file or postgres
	Backend string `env:"KEYS_BACKEND" env-default:"memory"`

	// Directory for the file backend
	DataDir string `env:"KEYS_DATA_DIR" env-default:"./data"`

	// Whether reads consult the store or a boot-time snapshot
	ReloadOnRead bool `env:"KEYS_RELOAD_ON_READ" env-default:"true"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `env:"HOST" env-default:"localhost"`
	Port uint16 `env:"PORT" env-default:"8080"`
}

// Addr returns the host:port string for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TokenConfig holds JWT issuance settings.
type TokenConfig struct {
	Issuer   string `env:"TOKEN_ISSUER" env-default:""`
	Audience string `env:"TOKEN_AUDIENCE" env-default:""`
}

// RateLimitConfig holds per-IP rate limiting settings for /auth.
type RateLimitConfig struct {
	Enabled    bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity   int     `env:"RATE_LIMIT_CAPACITY" env-default:"10"`
	RefillRate float64 `env:"RATE_LIMIT_REFILL_RATE" env-default:"10"`
}

// BucketTTL is how long inactive per-IP buckets stay in memory.
func (r RateLimitConfig) BucketTTL() time.Duration {
	return GetEnvDuration("RATE_LIMIT_BUCKET_TTL", time.Hour)
}

// Config is the root configuration loaded at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Keys      KeysConfig
	Token     TokenConfig
	RateLimit RateLimitConfig
}
