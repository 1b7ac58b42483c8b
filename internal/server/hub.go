// Package server exposes the face engine over HTTP: the JSON API the web
// UI polls, a websocket stream of resolved pose frames for render clients,
// and Prometheus metrics.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openclaw/clawface/internal/bus"
	"github.com/openclaw/clawface/internal/metrics"
)

// client is one connected render client.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active render clients and broadcasts frames to
// them. Slow clients are dropped rather than allowed to stall the stream.
type Hub struct {
	log    zerolog.Logger
	events *bus.EventBus

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log.With().Str("component", "hub").Logger(),
		clients: make(map[*client]struct{}),
	}
}

// SetEvents attaches the bus client lifecycle events are published on.
func (h *Hub) SetEvents(events *bus.EventBus) { h.events = events }

func (h *Hub) publish(t bus.EventType, id string, total int) {
	if h.events == nil {
		return
	}
	h.events.Publish(bus.Event{
		Type: t,
		Data: map[string]any{"client": id, "total": total},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.RenderClients.Set(float64(n))
	h.log.Info().Str("client", c.id).Int("total", n).Msg("render client connected")
	h.publish(bus.EventTypeClientConnected, c.id, n)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	// The reader and writer goroutines both call remove on teardown; only
	// the one that actually removed the client reports it.
	if !ok {
		return
	}
	metrics.RenderClients.Set(float64(n))
	h.log.Info().Str("client", c.id).Int("remaining", n).Msg("render client disconnected")
	h.publish(bus.EventTypeClientDisconnected, c.id, n)
}

// Broadcast queues a message for every client, dropping clients whose send
// buffer is full.
func (h *Hub) Broadcast(msg []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("client", c.id).Msg("dropping slow render client")
		h.remove(c)
		c.conn.Close()
	}
}

// serve owns the write side of one client connection.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.add(c)

	// Reader: we expect no inbound traffic, but reading drains control
	// frames and detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(c)
				conn.Close()
				return
			}
		}
	}()

	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			conn.Close()
			return
		}
	}
}
