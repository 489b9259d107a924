package notifications

import (
	"context"
	"encoding/json"
	"time"

	"confide/internal/models"
	"confide/internal/observability"

	"github.com/gofiber/websocket/v2"
	lru "github.com/hashicorp/golang-lru"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	// Number of recent event ids remembered per connection.
	dedupeWindow = 1024

	sendBuffer = 256
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID string

	seen *lru.Cache

	// IncomingHandler handles frames read from the peer.
	IncomingHandler func(*Client, []byte)
	// OnActivity is called whenever the peer shows it is alive.
	OnActivity func(userID string)
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	seen, err := lru.New(dedupeWindow)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		seen:   seen,
	}
}

// Deliver sends ev unless this connection already received an event with
// the same id.
func (c *Client) Deliver(ev models.Event) bool {
	if ok, _ := c.seen.ContainsOrAdd(ev.ID, struct{}{}); ok {
		observability.WebSocketDuplicateDrops.Inc()
		return false
	}
	data, err := json.Marshal(ev)
	if err != nil {
		c.hub.log.LogError(context.Background(), c.UserID, err, string(ev.Type))
		return false
	}
	observability.WebSocketEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	return c.TrySend(data)
}

// TrySend queues message without blocking. It reports false when the buffer
// is full or the client is closed.
func (c *Client) TrySend(message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
		observability.GlobalLogger.Warn("websocket buffer full, dropped message", "user_id", c.UserID)
		return false
	}
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c.UserID)
	}
}

// ReadPump pumps messages from the websocket connection to IncomingHandler
// until the peer goes away, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.LogError(context.Background(), c.UserID, err, "read")
			}
			return
		}
		c.touch()
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps messages from Send to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
