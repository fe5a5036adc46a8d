package cache

import (
	"context"
	"time"
)

// LayeredCache implements a two-level cache: an in-process L1 in front of
// any remote L2. Writes go through to both, reads fill L1 on a miss.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache wraps remote with an in-memory layer holding entries for
// at most l1TTL (0 keeps the caller's expiration).
func NewLayeredCache(remote Service, l1TTL time.Duration, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{l1: NewMemoryCache(opts...), l2: remote, l1TTL: l1TTL}
}

func (lc *LayeredCache) ttl(expiration time.Duration) time.Duration {
	if lc.l1TTL > 0 && (expiration <= 0 || lc.l1TTL < expiration) {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, value, lc.ttl(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	if err := lc.l1.Get(ctx, key, &raw); err == nil {
		return decode(raw, dest)
	}
	if err := lc.l2.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, raw, lc.ttl(0))
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

func (lc *LayeredCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	if err := lc.l2.MSet(ctx, values, expiration); err != nil {
		return err
	}
	return lc.l1.MSet(ctx, values, lc.ttl(expiration))
}

// MGet serves L1 hits locally and asks L2 only for the rest.
func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out, _ := lc.l1.MGet(ctx, keys...)
	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	remote, err := lc.l2.MGet(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for k, v := range remote {
		out[k] = v
		_ = lc.l1.Set(ctx, k, v, lc.ttl(0))
	}
	return out, nil
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
