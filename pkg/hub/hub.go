package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/protocol"
)

// Hub fans results out to subscribed renderers. Only Run touches the client
// set for writes.
type Hub struct {
	name   string
	logger *slog.Logger

	clients   map[*Client]bool
	broadcast chan Message

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu guards clients for readers outside the run loop
	mu sync.RWMutex

	running atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New returns a hub named for logs and stats.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send queue. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "subject", client.subject, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(message.Subject) {
					continue
				}
				select {
				case client.send <- message:
					h.sent.Add(1)
				default:
					// Too slow to keep up; drop the client rather than stall the rest.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "subject", client.subject)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for all interested clients. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message", "subject", msg.Subject)
	}
}

// BroadcastJSON encodes v and broadcasts it to every client.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewMessage("", data))
	return nil
}

// BroadcastResult wraps r in a result envelope and sends it to clients
// following r's subject.
func (h *Hub) BroadcastResult(r pipeline.Result) error {
	msg, err := protocol.NewMessage(protocol.TypeResult, r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	h.Broadcast(NewMessage(r.Subject, data))
	return nil
}

// Publish adapts BroadcastResult to a result callback.
func (h *Hub) Publish(r pipeline.Result) {
	if err := h.BroadcastResult(r); err != nil {
		h.logger.Warn("broadcast result", "session", r.SessionID, "error", err)
	}
}

// ClientCount reports how many renderers are subscribed.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats is a snapshot of delivery counters.
type Stats struct {
	Name    string `json:"name"`
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	return Stats{
		Name:    h.name,
		Clients: h.ClientCount(),
		Sent:    h.sent.Load(),
		Dropped: h.dropped.Load(),
	}
}
