package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// eventPong answers a client-side PING.
	eventPong domain.EventType = "PONG"
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_COURSE"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_COURSE"
	MessagePing        = "PING"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Send is the buffered channel of outbound events.
	Send chan domain.Event

	UserID uuid.UUID

	pongWait   time.Duration
	pingPeriod time.Duration

	// subscriptions holds the course IDs this client follows
	subscriptions map[int64]bool
	mu            sync.RWMutex

	sendMu sync.Mutex
	closed bool
	logger *slog.Logger
}

// NewClient creates a client for an upgraded connection. pongWait bounds
// how long the peer may stay silent; pings go out every pingPeriod.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, pongWait, pingPeriod time.Duration, logger *slog.Logger) *Client {
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		Send:          make(chan domain.Event, 256),
		UserID:        userID,
		pongWait:      pongWait,
		pingPeriod:    pingPeriod,
		subscriptions: make(map[int64]bool),
		logger:        logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// trySend queues event unless the channel is closed or full.
func (c *Client) trySend(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) addSubscription(courseID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[courseID] = true
}

func (c *Client) removeSubscription(courseID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, courseID)
}

// Subscriptions returns the course IDs the client follows.
func (c *Client) Subscriptions() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]int64, 0, len(c.subscriptions))
	for courseID := range c.subscriptions {
		subs = append(subs, courseID)
	}
	return subs
}

// ReadPump reads subscription requests until the connection drops.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leaveHub(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump writes queued events and keep-alive pings.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload names the course a dashboard wants events for.
type SubscribePayload struct {
	CourseID int64 `json:"courseId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe, MessageUnsubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.CourseID <= 0 {
			c.logger.Warn("invalid subscription payload", "type", msg.Type)
			return
		}
		if msg.Type == MessageSubscribe {
			c.hub.subscribe(c, p.CourseID)
		} else {
			c.hub.unsubscribe(c, p.CourseID)
		}

	case MessagePing:
		c.trySend(domain.Event{Type: eventPong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}
