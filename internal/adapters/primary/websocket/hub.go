package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/lorrc/ohq-statistics/internal/core/ports"
)

// Hub fans statistics events out to connected dashboards. Clients join a room
// per course; an event without a course reaches every client.
type Hub struct {
	clients map[*Client]bool

	// rooms maps course IDs to subscribed clients
	rooms map[int64]map[*Client]bool

	broadcast  chan domain.Event
	Unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	// mu protects the clients and rooms maps and stopped
	mu      sync.RWMutex
	stopped bool

	logger *slog.Logger
}

var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. Events are dropped, not blocked on,
// when the queue is full so batch runs never wait on slow dashboards.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"course_id", event.CourseID,
		)
	}
	return nil
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Join registers client, returning false once the hub has stopped. The
// client is registered when Join returns, so it may subscribe right away.
func (h *Hub) Join(client *Client) bool {
	return h.registerClient(client)
}

// leaveHub unregisters client unless the hub has already stopped.
func (h *Hub) leaveHub(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}
	h.clients[client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients),
	)
	return true
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)

	for _, courseID := range client.Subscriptions() {
		h.leave(client, courseID)
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "user_id", client.UserID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	for client := range h.clients {
		client.CloseSend()
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[int64]map[*Client]bool)
}

// broadcastEvent delivers event to its course room, or to everyone when the
// event is not course scoped.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	var targets []*Client
	if event.CourseID == 0 {
		targets = make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			targets = append(targets, client)
		}
	} else {
		room := h.rooms[event.CourseID]
		targets = make([]*Client, 0, len(room))
		for client := range room {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"course_id", event.CourseID,
		"client_count", len(targets),
	)

	for _, client := range targets {
		if !client.trySend(event) {
			// Slow consumer. Drop it rather than stall the loop.
			h.logger.Warn("client send buffer full, disconnecting", "user_id", client.UserID)
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) subscribe(client *Client, courseID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	if h.rooms[courseID] == nil {
		h.rooms[courseID] = make(map[*Client]bool)
	}
	h.rooms[courseID][client] = true
	client.addSubscription(courseID)

	h.logger.Debug("client subscribed to course", "user_id", client.UserID, "course_id", courseID)
}

func (h *Hub) unsubscribe(client *Client, courseID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(client, courseID)
	client.removeSubscription(courseID)
}

// leave must be called with mu held.
func (h *Hub) leave(client *Client, courseID int64) {
	if room, ok := h.rooms[courseID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, courseID)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientsInRoom returns the number of clients following a course
func (h *Hub) ClientsInRoom(courseID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[courseID])
}
