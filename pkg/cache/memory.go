package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
	access   time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. Values are
// encoded the same way as in Redis so callers see identical semantics.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go mc.cleanupLoop()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.setLocked(key, data, expiration)
	return nil
}

func (mc *MemoryCache) setLocked(key string, data []byte, expiration time.Duration) {
	now := mc.now()
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	item := &memoryItem{data: data, access: now}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}
	mc.data[key] = item
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.lookupLocked(key)
	var data []byte
	if ok {
		data = item.data
	}
	mc.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) lookupLocked(key string) (*memoryItem, bool) {
	now := mc.now()
	item, ok := mc.data[key]
	if !ok {
		return nil, false
	}
	if item.expired(now) {
		delete(mc.data, key)
		return nil, false
	}
	item.access = now
	return item, true
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if _, ok := mc.lookupLocked(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) MSet(_ context.Context, values map[string]interface{}, expiration time.Duration) error {
	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		data, err := encode(value)
		if err != nil {
			return err
		}
		encoded[key] = data
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key, data := range encoded {
		mc.setLocked(key, data, expiration)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if item, ok := mc.lookupLocked(key); ok {
			out[key] = string(item.data)
		}
	}
	return out, nil
}

// Len reports the number of live entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey, oldest = key, item.access
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanupLoop() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup loop.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}
