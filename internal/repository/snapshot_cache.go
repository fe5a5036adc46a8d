package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/cache"
)

const (
	snapshotKeyPrefix = "snapshot"
	summaryKey        = "summary:latest"
)

// CacheSnapshotStore keeps the latest snapshot per symbol and the latest
// summary in a cache.Service (in-memory or Redis). Entries expire after ttl
// so a symbol that stops producing disappears on its own.
type CacheSnapshotStore struct {
	c   cache.Service
	ttl time.Duration

	mu      sync.RWMutex
	symbols map[string]struct{}
}

func NewCacheSnapshotStore(c cache.Service, ttl time.Duration) *CacheSnapshotStore {
	return &CacheSnapshotStore{c: c, ttl: ttl, symbols: make(map[string]struct{})}
}

var _ domrepo.SnapshotStore = (*CacheSnapshotStore)(nil)

func snapshotKey(symbol string) string {
	return cache.GenerateKey(snapshotKeyPrefix, symbol)
}

func (s *CacheSnapshotStore) PublishSnapshot(ctx context.Context, snap *models.InstrumentSnapshot) error {
	symbol := normSymbol(snap.Symbol)
	if err := s.c.Set(ctx, snapshotKey(symbol), snap, s.ttl); err != nil {
		return fmt.Errorf("cache snapshot %s: %w", symbol, err)
	}
	s.mu.Lock()
	s.symbols[symbol] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *CacheSnapshotStore) PublishSummary(ctx context.Context, sum *models.MarketSummary) error {
	if err := s.c.Set(ctx, summaryKey, sum, s.ttl); err != nil {
		return fmt.Errorf("cache summary: %w", err)
	}
	return nil
}

func (s *CacheSnapshotStore) LatestSnapshot(ctx context.Context, symbol string) (*models.InstrumentSnapshot, error) {
	var snap models.InstrumentSnapshot
	if err := s.c.Get(ctx, snapshotKey(normSymbol(symbol)), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("snapshot %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", symbol, err)
	}
	return &snap, nil
}

// LatestSnapshots returns the live snapshots ordered by symbol. Symbols
// whose entry expired are dropped from the listing.
func (s *CacheSnapshotStore) LatestSnapshots(ctx context.Context) ([]*models.InstrumentSnapshot, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		keys = append(keys, snapshotKey(sym))
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	found, err := cache.MGetTyped[models.InstrumentSnapshot](ctx, s.c, keys...)
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	out := make([]*models.InstrumentSnapshot, 0, len(found))
	var expired []string
	for _, k := range keys {
		snap, ok := found[k]
		if !ok {
			expired = append(expired, k)
			continue
		}
		out = append(out, &snap)
	}
	if len(expired) > 0 {
		s.mu.Lock()
		for _, k := range expired {
			delete(s.symbols, strings.TrimPrefix(k, snapshotKeyPrefix+":"))
		}
		s.mu.Unlock()
	}
	return out, nil
}

func (s *CacheSnapshotStore) LatestSummary(ctx context.Context) (*models.MarketSummary, error) {
	var sum models.MarketSummary
	if err := s.c.Get(ctx, summaryKey, &sum); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("summary: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return &sum, nil
}
