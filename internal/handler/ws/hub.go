package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/service/metrics"
	applogger "FinSignal/pkg/logger"
)

// Message types pushed to clients.
const (
	TypeSnapshot = "snapshot"
	TypeSummary  = "summary"
)

// Envelope is the frame written to every client.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Config struct {
	Path           string
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	return c
}

// Hub pushes every delivered snapshot and summary to the connected clients.
// It is a SnapshotSink, so the cycle runner feeds it like any other target.
// New clients first receive the latest records held by replay, when set.
type Hub struct {
	cfg      Config
	log      *applogger.Logger
	replay   domrepo.SnapshotStore
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	clients    atomic.Int64
}

var _ domrepo.SnapshotSink = (*Hub)(nil)

func NewHub(cfg Config, replay domrepo.SnapshotStore, log *applogger.Logger) *Hub {
	cfg = cfg.withDefaults()
	if log == nil {
		log = applogger.Nop()
	}
	metrics.Register()
	return &Hub{
		cfg:    cfg,
		log:    log,
		replay: replay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, cfg.SendBuffer),
		done:       make(chan struct{}),
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int { return int(h.clients.Load()) }

// Run owns the client set until ctx ends, then closes every client.
// It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[*client]struct{})
	set := func() {
		h.clients.Store(int64(len(clients)))
		metrics.StreamClients.Set(float64(len(clients)))
	}
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c.send)
			}
			clients = map[*client]struct{}{}
			set()
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			set()
			h.log.Debug("ws client connected", applogger.Int("clients", len(clients)))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				set()
				h.log.Debug("ws client disconnected", applogger.Int("clients", len(clients)))
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// slow client, drop this frame
				}
			}
		}
	}
}

func (h *Hub) PublishSnapshot(_ context.Context, s *models.InstrumentSnapshot) error {
	return h.publish(TypeSnapshot, s)
}

func (h *Hub) PublishSummary(_ context.Context, s *models.MarketSummary) error {
	return h.publish(TypeSummary, s)
}

func (h *Hub) publish(kind string, v interface{}) error {
	msg, err := json.Marshal(Envelope{Type: kind, Data: v})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("ws broadcast queue full, frame dropped", applogger.String("type", kind))
	}
	return nil
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET(h.cfg.Path, h.Serve)
}

// Serve upgrades the request and attaches the connection to the hub.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{hub: h, conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	h.queueReplay(c.Request().Context(), cl)

	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return nil
	}
	go cl.writePump()
	go cl.readPump()
	return nil
}

// queueReplay loads the latest records into the client's queue before it
// joins the live stream.
func (h *Hub) queueReplay(ctx context.Context, cl *client) {
	if h.replay == nil {
		return
	}
	var frames []Envelope
	if snaps, err := h.replay.LatestSnapshots(ctx); err == nil {
		for _, s := range snaps {
			frames = append(frames, Envelope{Type: TypeSnapshot, Data: s})
		}
	}
	if sum, err := h.replay.LatestSummary(ctx); err == nil {
		frames = append(frames, Envelope{Type: TypeSummary, Data: sum})
	}
	for _, f := range frames {
		msg, err := json.Marshal(f)
		if err != nil {
			continue
		}
		select {
		case cl.send <- msg:
		default:
			return
		}
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	pongWait := 2 * c.hub.cfg.PingInterval
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
