package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
	"github.com/pawhaus/boarding-api/internal/core/service"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
	"github.com/pawhaus/boarding-api/internal/infrastructure/db/memory"
	mongodb "github.com/pawhaus/boarding-api/internal/infrastructure/db/mongo"
	redisdb "github.com/pawhaus/boarding-api/internal/infrastructure/db/redis"
	"github.com/pawhaus/boarding-api/internal/pkg/config"
)

type storage struct {
	repos  service.Repositories
	pinger ports.Pinger
	close  func(context.Context) error
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Backend == config.StorageMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &storage{
			repos:  memoryRepositories(),
			pinger: alwaysUp{},
			close:  func(context.Context) error { return nil },
		}, nil
	}

	db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	repos, err := mongoRepositories(ctx, db)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
	return &storage{repos: repos, pinger: db, close: db.Close}, nil
}

func memoryRepositories() service.Repositories {
	return service.Repositories{
		Users:          memory.NewUserStore(),
		Pets:           memory.NewStore[domain.Pet](),
		Services:       memory.NewStore[domain.Service](),
		Reservations:   memory.NewStore[domain.Reservation](),
		Invoices:       memory.NewStore[domain.Invoice](),
		Payments:       memory.NewStore[domain.Payment](),
		MedicalHistory: memory.NewStore[domain.MedicalRecord](),
		Employees:      memory.NewStore[domain.Employee](),
		Assignments:    memory.NewStore[domain.Assignment](),
		ActivityLogs:   memory.NewStore[domain.ActivityLog](),
	}
}

func mongoRepositories(ctx context.Context, db *mongodb.DB) (service.Repositories, error) {
	counters := mongodb.NewCounters(db.Database)

	users := mongodb.NewUserRepository(db.Database, counters)
	if err := users.EnsureIndexes(ctx); err != nil {
		return service.Repositories{}, fmt.Errorf("user indexes: %w", err)
	}

	pets := mongodb.NewCollection[domain.Pet](db.Database, "pets", counters)
	reservations := mongodb.NewCollection[domain.Reservation](db.Database, "reservations", counters)
	invoices := mongodb.NewCollection[domain.Invoice](db.Database, "invoices", counters)
	payments := mongodb.NewCollection[domain.Payment](db.Database, "payments", counters)
	medical := mongodb.NewCollection[domain.MedicalRecord](db.Database, "medical_history", counters)

	// Owner fields back the scoped list queries.
	indexes := []struct {
		name   string
		ensure func(context.Context, ...string) error
		fields []string
	}{
		{"pets", pets.EnsureIndexes, []string{"user_id"}},
		{"reservations", reservations.EnsureIndexes, []string{"user_id", "pet_id"}},
		{"invoices", invoices.EnsureIndexes, []string{"user_id"}},
		{"payments", payments.EnsureIndexes, []string{"user_id"}},
		{"medical_history", medical.EnsureIndexes, []string{"pet_id"}},
	}
	for _, ix := range indexes {
		if err := ix.ensure(ctx, ix.fields...); err != nil {
			return service.Repositories{}, fmt.Errorf("%s indexes: %w", ix.name, err)
		}
	}

	return service.Repositories{
		Users:          users,
		Pets:           pets,
		Services:       mongodb.NewCollection[domain.Service](db.Database, "services", counters),
		Reservations:   reservations,
		Invoices:       invoices,
		Payments:       payments,
		MedicalHistory: medical,
		Employees:      mongodb.NewCollection[domain.Employee](db.Database, "employees", counters),
		Assignments:    mongodb.NewCollection[domain.Assignment](db.Database, "assignments", counters),
		ActivityLogs:   mongodb.NewCollection[domain.ActivityLog](db.Database, "activity_logs", counters),
	}, nil
}

// openCache builds the configured backend without contacting it; the cache
// service reports reachability later.
func openCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := redisdb.NewClient(redisdb.Config{URL: cfg.Cache.RedisURL, OpTimeout: cfg.Cache.OpTimeout})
		if err != nil {
			return nil, err
		}
		return redisdb.NewCacheStore(client), nil
	case config.CacheMemory:
		store, err := cache.NewMemoryStore(cfg.Cache.MemorySize)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return cache.NoopStore{}, nil
	}
}
