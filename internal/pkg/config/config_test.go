package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("unexpected port %q", cfg.Port)
	}
	if cfg.JWT.TTL() != 60*time.Minute {
		t.Errorf("unexpected token ttl %v", cfg.JWT.TTL())
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Cache.ItemTTL <= cfg.Cache.ListTTL {
		t.Errorf("item ttl %v should exceed list ttl %v", cfg.Cache.ItemTTL, cfg.Cache.ListTTL)
	}
	if cfg.Admin.Enabled() {
		t.Errorf("admin seed should be disabled by default")
	}
}

func TestLoadWith_MissingSecretFails(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("error should name JWT_SECRET, got %v", err)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "s3cret",
		"JWT_EXPIRE_MINUTES": "5",
		"STORAGE_BACKEND":    "memory",
		"CACHE_BACKEND":      "none",
		"WS_ALLOWED_ORIGINS": "app.example.com,admin.example.com",
		"ADMIN_EMAIL":        "root@example.com",
		"ADMIN_PASSWORD":     "changeme",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.JWT.TTL() != 5*time.Minute {
		t.Errorf("unexpected ttl %v", cfg.JWT.TTL())
	}
	if cfg.Storage.Backend != StorageMemory || cfg.Cache.Backend != CacheNone {
		t.Errorf("unexpected backends %q / %q", cfg.Storage.Backend, cfg.Cache.Backend)
	}
	if len(cfg.WS.AllowedOrigins) != 2 {
		t.Errorf("unexpected origins %v", cfg.WS.AllowedOrigins)
	}
	if !cfg.Admin.Enabled() {
		t.Errorf("admin seed should be enabled")
	}
}

func TestLoadWith_UnknownBackend(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":    "s3cret",
		"CACHE_BACKEND": "memcached",
	}))
	if err == nil {
		t.Fatalf("expected error for unknown cache backend")
	}
}
