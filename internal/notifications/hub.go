// Package notifications pushes badge awards to connected websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"promptvault/internal/events"
	"promptvault/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// MessageType identifies a pushed message.
type MessageType string

const (
	MessageTypeBadgeAwarded MessageType = "badge_awarded"
)

// Message is the frame written to clients.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	once   sync.Once
}

// Hub tracks websocket connections per user. A user may hold several.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates an empty hub. allowedOrigins empty accepts any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[int64]map[*client]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Register subscribes the hub to badge.awarded events.
func (h *Hub) Register(bus events.EventBus) error {
	return bus.Subscribe(events.TypeBadgeAwarded, events.NewTypedEventHandler("websocket-hub",
		func(_ context.Context, e *events.BadgeAwardedEvent) error {
			if uid := e.GetUserID(); uid != nil {
				h.NotifyBadge(*uid, e.Badge)
			}
			return nil
		}))
}

// ServeUser upgrades the request and attaches the connection to userID. It returns
// once the connection is registered; reading and writing continue in the background.
func (h *Hub) ServeUser(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	h.logger.Debug("Websocket client connected", zap.Int64("user_id", userID))

	go c.writePump()
	go c.readPump()
}

// NotifyBadge pushes a badge to every connection of userID and returns how many
// connections accepted it. Slow clients are disconnected.
func (h *Hub) NotifyBadge(userID int64, badge models.NewBadge) int {
	data, err := json.Marshal(Message{Type: MessageTypeBadgeAwarded, Payload: badge})
	if err != nil {
		h.logger.Error("Failed to marshal badge notification", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	var slow []*client
	delivered := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client", zap.Int64("user_id", userID))
		h.remove(c)
	}
	return delivered
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Stats reports connected users and open connections.
func (h *Hub) Stats() (users, connections int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		connections += len(set)
	}
	return len(h.clients), connections
}

// Close disconnects every client and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.remove(c)
	}
	h.wg.Wait()
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.clients[c.userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.userID)
			}
		}
		h.mu.Unlock()
		close(c.send)
	})
}

// readPump only services control frames; clients never send data.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.hub.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Websocket read error", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}
