package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "a", payload{"BTCUSDT", 0.7}, 0); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := mc.Get(ctx, "a", &got); err != nil {
		t.Fatal(err)
	}
	if got.Symbol != "BTCUSDT" || got.Score != 0.7 {
		t.Fatalf("got %+v", got)
	}

	var s string
	_ = mc.Set(ctx, "s", "raw", 0)
	if err := mc.Get(ctx, "s", &s); err != nil || s != "raw" {
		t.Fatalf("string round trip: %q %v", s, err)
	}

	if err := mc.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }

	_ = mc.Set(ctx, "k", 1, time.Minute)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatal("expected key to exist")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatal("expected key to expire")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }

	_ = mc.Set(ctx, "a", 1, 0)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", 2, 0)
	now = now.Add(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v) // a is now newer than b
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatal("a and c should remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestMGetTyped(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.MSet(ctx, map[string]interface{}{
		"x": payload{"X", 1},
		"y": payload{"Y", 2},
		"z": "not json",
	}, 0)
	got, err := MGetTyped[payload](ctx, mc, "x", "y", "z", "w")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["y"].Score != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestLayeredCacheFillsL1(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, time.Minute)
	defer lc.Close()

	_ = remote.Set(ctx, "k", payload{"K", 3}, 0)
	var got payload
	if err := lc.Get(ctx, "k", &got); err != nil || got.Symbol != "K" {
		t.Fatalf("get through: %+v %v", got, err)
	}
	_ = remote.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("expected L1 hit after remote delete: %v", err)
	}

	_ = lc.Set(ctx, "w", payload{"W", 4}, 0)
	if ok, _ := remote.Exists(ctx, "w"); !ok {
		t.Fatal("write must reach L2")
	}
	m, err := lc.MGet(ctx, "k", "w", "none")
	if err != nil || len(m) != 2 {
		t.Fatalf("mget = %v %v", m, err)
	}
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("snapshot", "BTCUSDT"); got != "snapshot:BTCUSDT" {
		t.Fatalf("got %s", got)
	}
}
