package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Monitor WebSocket: hub + per-client pumps
// ============================================================================
// Optional live view of transform decisions for curve tuning. The hub fans
// serialized frames out to connected clients; a slow client is disconnected
// when its send queue fills rather than blocking the relay.
//
// Wire format: JSON text frames {type, ts, data}. Frame types:
//   - "transform": one transformSample per scroll tick
//   - "session":   open/close notices
// ============================================================================

const (
	monitorSendBuf      = 64
	monitorWriteTimeout = 5 * time.Second
)

type monitorFrame struct {
	Type string    `json:"type"`
	Ts   time.Time `json:"ts"`
	Data any       `json:"data,omitempty"`
}

type monitorHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*monitorClient]struct{}
}

type monitorClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newMonitorHub(logger *slog.Logger) *monitorHub {
	return &monitorHub{
		logger:  logger,
		clients: make(map[*monitorClient]struct{}),
	}
}

// BroadcastTransform fans one transform decision out to all clients.
// Non-blocking: clients that cannot keep up are dropped.
func (h *monitorHub) BroadcastTransform(sample transformSample) {
	h.broadcast("transform", sample)
}

// BroadcastSession announces session lifecycle changes.
func (h *monitorHub) BroadcastSession(data any) {
	h.broadcast("session", data)
}

func (h *monitorHub) broadcast(frameType string, data any) {
	payload, err := json.Marshal(monitorFrame{Type: frameType, Ts: time.Now(), Data: data})
	if err != nil {
		h.logger.Warn("monitor frame marshal", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Client too slow; disconnect it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *monitorHub) register(c *monitorClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *monitorHub) unregister(c *monitorClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// writePump drains the client's send queue onto the websocket connection.
// One pump per client so a stalled peer never blocks the hub.
func (c *monitorClient) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(monitorWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// runMonitorServer serves the /ws endpoint until ctx is canceled.
func runMonitorServer(ctx context.Context, addr string, hub *monitorHub, logger *slog.Logger) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Local tuning endpoint; not exposed beyond loopback by default.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("monitor upgrade", "error", err)
			return
		}

		c := &monitorClient{conn: conn, send: make(chan []byte, monitorSendBuf)}
		hub.register(c)
		logger.Debug("monitor client connected", "remote", conn.RemoteAddr())

		go c.writePump()

		// Read pump: discard inbound frames, detect disconnect.
		go func() {
			defer hub.unregister(c)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("monitor listening", "addr", addr, "endpoint", "/ws")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
