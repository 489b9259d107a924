package notifications

import (
	"context"
	"errors"
	"sync"

	"confide/internal/models"
	"confide/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// RoomAccess reports whether userID may receive events of roomID.
type RoomAccess func(userID, roomID string) bool

// Hub routes bus events to the websocket connections allowed to see them:
// user topics to that user, room topics to room members, feed and presence
// topics to everyone.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	canSeeRoom RoomAccess
	log        *observability.WSLogger

	onConnect    func(userID string)
	onDisconnect func(userID string)
}

// NewHub creates a hub. canSeeRoom may be nil, in which case room events
// reach nobody.
func NewHub(canSeeRoom RoomAccess) *Hub {
	return &Hub{
		conns:      make(map[string]map[*Client]struct{}),
		canSeeRoom: canSeeRoom,
		log:        observability.NewWSLogger("events"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "event hub" }

// SetConnectionCallbacks registers hooks run when a connection opens or closes.
func (h *Hub) SetConnectionCallbacks(onConnect, onDisconnect func(userID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
}

// Register a connection for userID. conn may be nil in tests.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserFull
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	onConnect := h.onConnect
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), userID, len(AllPatterns))
	if onConnect != nil {
		onConnect(userID)
	}
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Calling it
// twice is safe.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
			close(client.Send)
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	onDisconnect := h.onDisconnect
	h.mu.Unlock()

	if !removed {
		return
	}
	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(context.Background(), client.UserID, "closed")
	if onDisconnect != nil {
		onDisconnect(client.UserID)
	}
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Route delivers ev to every connection allowed to see it and returns the
// number of connections it was queued on.
func (h *Hub) Route(ev models.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	if userID, ok := models.UserIDFromTopic(ev.Topic); ok {
		for c := range h.conns[userID] {
			if c.Deliver(ev) {
				delivered++
			}
		}
		return delivered
	}
	if roomID, ok := models.RoomIDFromTopic(ev.Topic); ok {
		if h.canSeeRoom == nil {
			return 0
		}
		for userID, clients := range h.conns {
			if !h.canSeeRoom(userID, roomID) {
				continue
			}
			for c := range clients {
				if c.Deliver(ev) {
					delivered++
				}
			}
		}
		return delivered
	}
	for _, clients := range h.conns {
		for c := range clients {
			if c.Deliver(ev) {
				delivered++
			}
		}
	}
	return delivered
}

// StartWiring subscribes the hub to every topic on bus.
func (h *Hub) StartWiring(ctx context.Context, bus Bus) error {
	return bus.Subscribe(ctx, func(ev models.Event) {
		h.Route(ev)
	}, AllPatterns...)
}

// Shutdown unregisters every client; each write pump then sends a close
// frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	var clients []*Client
	for _, m := range h.conns {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.UnregisterClient(c)
	}
	return nil
}
