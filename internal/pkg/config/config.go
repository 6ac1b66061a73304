package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

type Config struct {
	Port     string `env:"PORT, default=8080"`
	Env      string `env:"ENV, default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT     JWTConfig
	Storage StorageConfig
	Mongo   MongoConfig
	Cache   CacheConfig
	WS      WSConfig
	Notify  NotifyConfig
	Admin   AdminConfig
}

type JWTConfig struct {
	Secret        string `env:"JWT_SECRET, required"`
	ExpireMinutes int    `env:"JWT_EXPIRE_MINUTES, default=60"`
}

// TTL is the default token lifetime.
func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB, default=pet_boarding"`
}

type CacheConfig struct {
	Backend    string        `env:"CACHE_BACKEND, default=redis"`
	RedisURL   string        `env:"REDIS_URL, default=redis://localhost:6379/0"`
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL, default=5m"`
	ListTTL    time.Duration `env:"CACHE_LIST_TTL, default=10m"`
	ItemTTL    time.Duration `env:"CACHE_ITEM_TTL, default=15m"`
	OpTimeout  time.Duration `env:"CACHE_OP_TIMEOUT, default=250ms"`
	MemorySize int           `env:"CACHE_MEMORY_SIZE, default=4096"`
}

type WSConfig struct {
	PingInterval   time.Duration `env:"WS_PING_INTERVAL, default=30s"`
	WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT, default=5s"`
	AllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS"`
}

type NotifyConfig struct {
	Workers int `env:"NOTIFY_WORKERS, default=4"`
	Buffer  int `env:"NOTIFY_BUFFER, default=256"`
}

// AdminConfig seeds an admin account at startup when both fields are set.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

func (c AdminConfig) Enabled() bool {
	return c.Email != "" && c.Password != ""
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWT.ExpireMinutes <= 0 {
		return errors.New("JWT_EXPIRE_MINUTES must be positive")
	}
	switch c.Storage.Backend {
	case StorageMongo, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Cache.OpTimeout <= 0 {
		return errors.New("CACHE_OP_TIMEOUT must be positive")
	}
	return nil
}
