package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/repository"
	"FinSignal/pkg/cache"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T, replay *repository.CacheSnapshotStore) (*Hub, string) {
	t.Helper()
	var h *Hub
	if replay != nil {
		h = NewHub(Config{PingInterval: time.Second}, replay, nil)
	} else {
		h = NewHub(Config{PingInterval: time.Second}, nil, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestHub_Broadcast(t *testing.T) {
	h, url := startHub(t, nil)
	a, b := dial(t, url), dial(t, url)
	waitClients(t, h, 2)

	ctx := context.Background()
	if err := h.PublishSnapshot(ctx, &models.InstrumentSnapshot{CycleID: "c1", Symbol: "BTCUSDT"}); err != nil {
		t.Fatal(err)
	}
	if err := h.PublishSummary(ctx, &models.MarketSummary{CycleID: "c1", Instruments: 1}); err != nil {
		t.Fatal(err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		f := read(t, conn)
		var snap models.InstrumentSnapshot
		if f.Type != TypeSnapshot || json.Unmarshal(f.Data, &snap) != nil || snap.Symbol != "BTCUSDT" {
			t.Fatalf("first frame = %s %s", f.Type, f.Data)
		}
		if f = read(t, conn); f.Type != TypeSummary {
			t.Fatalf("second frame type = %s", f.Type)
		}
	}

	_ = a.Close()
	waitClients(t, h, 1)
}

func TestHub_ReplaysLatestOnConnect(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	store := repository.NewCacheSnapshotStore(mem, time.Minute)
	ctx := context.Background()
	_ = store.PublishSnapshot(ctx, &models.InstrumentSnapshot{CycleID: "c7", Symbol: "ETHUSDT"})
	_ = store.PublishSummary(ctx, &models.MarketSummary{CycleID: "c7"})

	_, url := startHub(t, store)
	conn := dial(t, url)

	if f := read(t, conn); f.Type != TypeSnapshot || !strings.Contains(string(f.Data), "ETHUSDT") {
		t.Fatalf("replayed frame = %s %s", f.Type, f.Data)
	}
	if f := read(t, conn); f.Type != TypeSummary || !strings.Contains(string(f.Data), "c7") {
		t.Fatalf("replayed frame = %s %s", f.Type, f.Data)
	}
}
