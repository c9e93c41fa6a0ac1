// Package websocket fans workflow progress events out to connected
// browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"insightpipe/internal/infrastructure"
)

// Message type constants for the wire protocol.
const (
	TypeConnection       = "connection"
	TypeWorkflowStarted  = "workflow:started"
	TypeWorkflowFinished = "workflow:finished"
	TypeTaskStarted      = "task:started"
	TypeTaskCompleted    = "task:completed"
	TypeTaskFailed       = "task:failed"
)

// Hub maintains the set of active clients and broadcasts messages to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	// clientGauge, when set, receives +1/-1 deltas as clients come
	// and go. Set before Start.
	clientGauge func(delta int64)

	quit    chan struct{}
	running bool
}

// NewHub creates a new hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// SetClientGauge installs a callback that observes client count
// changes, typically backed by a metrics counter.
func (h *Hub) SetClientGauge(fn func(delta int64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientGauge = fn
}

func (h *Hub) gauge(delta int64) {
	h.mu.RLock()
	fn := h.clientGauge
	h.mu.RUnlock()
	if fn != nil {
		fn(delta)
	}
}

// Start runs the hub loop in a goroutine. Safe to call once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts the hub loop down.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub_stopped")
			h.mu.Lock()
			dropped := int64(len(h.clients))
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			if dropped > 0 {
				h.gauge(-dropped)
			}
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()
			h.gauge(1)

			h.logger.Info("client_registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.gauge(-1)
			}

			h.logger.Info("client_unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					// Slow client, drop it.
					h.mu.Lock()
					_, ok := h.clients[client]
					if ok {
						close(client.send)
						delete(h.clients, client)
					}
					h.mu.Unlock()
					if ok {
						h.gauge(-1)
					}
					h.logger.Warn("client_send_buffer_full",
						slog.String("client_id", client.id))
				}
			}
		}
	}
}

// greet sends the connection acknowledgement to a new client.
func (h *Hub) greet(client *Client) {
	msg := map[string]any{
		"type": TypeConnection,
		"data": map[string]any{
			"status":    "connected",
			"client_id": client.id,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// Broadcast sends a typed event payload to every connected client.
func (h *Hub) Broadcast(eventType string, data any) {
	msg := map[string]any{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(context.Background(), "broadcast_marshal_failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast_buffer_full", slog.String("event_type", eventType))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports hub counters for the health endpoint.
func (h *Hub) Stats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]int64{
		"active_clients":    int64(len(h.clients)),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
