package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/api/metrics"
)

const (
	defaultOpTimeout = 250 * time.Millisecond
	defaultTTL       = 5 * time.Minute
)

// Options tunes a Service.
type Options struct {
	// OpTimeout bounds every backend call.
	OpTimeout time.Duration
	// DefaultTTL applies when a caller passes ttl <= 0.
	DefaultTTL time.Duration
}

// Service wraps a Store with best-effort semantics: reads degrade to a miss,
// writes report a success flag, and nothing is ever returned as an error.
// A nil *Service behaves as a cache that is always empty.
type Service struct {
	store      Store
	log        zerolog.Logger
	opTimeout  time.Duration
	defaultTTL time.Duration

	// generations counts invalidations per family. Read keys carry the
	// generation seen before loading, so a load that straddles a write
	// caches under a key no later read will ask for.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewService(store Store, opts Options, log zerolog.Logger) *Service {
	if store == nil {
		store = NoopStore{}
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	return &Service{
		store:      store,
		log:        log.With().Str("component", "cache").Logger(),
		opTimeout:   opts.OpTimeout,
		defaultTTL:  opts.DefaultTTL,
		generations: make(map[string]uint64),
	}
}

// Connect checks the backend. A failure is returned for the caller to log,
// but the Service stays usable and keeps degrading to misses.
func (s *Service) Connect(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if err := s.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cache backend unavailable, running without cache")
		return err
	}
	return nil
}

// Ping reports backend health for readiness probes.
func (s *Service) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.store.Close()
}

// Get returns the cached bytes for key. Any backend failure is a miss.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	val, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return val, true
	case errors.Is(err, ErrMiss):
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		s.log.Debug().Err(err).Str("key", key).Msg("cache get failed")
	}
	return nil, false
}

// Set stores value under key for ttl, or the default TTL when ttl <= 0.
func (s *Service) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheWriteErrorsTotal.WithLabelValues("set").Inc()
		s.log.Debug().Err(err).Str("key", key).Msg("cache set failed")
		return false
	}
	return true
}

func (s *Service) Delete(ctx context.Context, key string) bool {
	if s == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		metrics.CacheWriteErrorsTotal.WithLabelValues("delete").Inc()
		s.log.Debug().Err(err).Str("key", key).Msg("cache delete failed")
		return false
	}
	return true
}

// DeletePattern removes keys matching pattern and returns how many went.
// Failures count as zero.
func (s *Service) DeletePattern(ctx context.Context, pattern string) int {
	if s == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.store.DeletePattern(ctx, pattern)
	if err != nil {
		metrics.CacheWriteErrorsTotal.WithLabelValues("delete_pattern").Inc()
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation failed")
		return 0
	}
	return n
}

// InvalidateFamily drops every cached read of a resource family.
func (s *Service) InvalidateFamily(ctx context.Context, family string) int {
	s.bump(family)
	n := s.DeletePattern(ctx, FamilyPattern(family))
	if n > 0 {
		metrics.CacheInvalidatedKeysTotal.WithLabelValues(family).Add(float64(n))
	}
	return n
}

// versioned tags key with the current generation of its family, the part
// of the key before the first colon. Keys of never-invalidated families are
// left as they are.
func (s *Service) versioned(key string) string {
	if s == nil {
		return key
	}
	family, _, _ := strings.Cut(key, ":")
	s.mu.Lock()
	gen := s.generations[family]
	s.mu.Unlock()
	if gen == 0 {
		return key
	}
	return key + "@" + strconv.FormatUint(gen, 10)
}

func (s *Service) bump(family string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.generations[family]++
	s.mu.Unlock()
}

var nopLogger = zerolog.Nop()

func (s *Service) logger() *zerolog.Logger {
	if s == nil {
		return &nopLogger
	}
	return &s.log
}
