package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Read returns the value cached under key, or calls load on a miss and
// caches its result for ttl. Load errors propagate and are never cached.
// Values that cannot be encoded are returned uncached; entries that cannot
// be decoded are dropped and treated as a miss. A write to the key's family
// that lands while load runs keeps the loaded value out of later reads.
func Read[V any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	key = s.versioned(key)
	if raw, ok := s.Get(ctx, key); ok {
		var v V
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		s.logger().Debug().Str("key", key).Msg("dropping undecodable cache entry")
		s.Delete(ctx, key)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		s.logger().Warn().Err(err).Str("key", key).Msg("value not cacheable")
		return v, nil
	}
	s.Set(ctx, key, raw, ttl)
	return v, nil
}

// Invalidate runs write and, only if it succeeds, drops every cached read
// of family. The write's error is returned unchanged.
func Invalidate(ctx context.Context, s *Service, family string, write func(context.Context) error) error {
	if err := write(ctx); err != nil {
		return err
	}
	s.InvalidateFamily(ctx, family)
	return nil
}
