package server

import (
	"context"
	"encoding/json"

	"confide/internal/models"
	"confide/internal/notifications"
	"confide/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Frame types a client may send.
const (
	frameTypePing        = "ping"
	frameTypeRoomMessage = "room_message"
)

type incomingFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Content string `json:"content,omitempty"`
}

type outgoingFrame struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// WebSocketHandler relays bus events addressed to the caller and to the rooms
// the caller belongs to. Clients may also send room messages over the socket.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		if _, err := s.store.User(userID); err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unknown user"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.GlobalLogger.Warn("websocket register failed", "user_id", userID, "error", err)
			frame, _ := json.Marshal(outgoingFrame{Type: "error", Error: err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, frame)
			_ = conn.Close()
			return
		}

		client.OnActivity = func(userID string) {
			if err := s.presence.Heartbeat(context.Background(), userID); err != nil {
				observability.GlobalLogger.Debug("presence heartbeat failed", "user_id", userID, "error", err)
			}
		}
		client.IncomingHandler = s.handleFrame

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) handleFrame(client *notifications.Client, message []byte) {
	var frame incomingFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		reply(client, outgoingFrame{Type: "error", Error: "invalid frame"})
		return
	}

	switch frame.Type {
	case frameTypePing:
		reply(client, outgoingFrame{Type: "pong"})
	case frameTypeRoomMessage:
		// The message itself comes back through the room topic.
		if _, err := s.store.SendRoomMessage(context.Background(), client.UserID, frame.RoomID, frame.Content); err != nil {
			reply(client, outgoingFrame{Type: "error", Error: err.Error(), Code: models.ErrorCode(err)})
		}
	default:
		reply(client, outgoingFrame{Type: "error", Error: "unknown frame type"})
	}
}

func reply(client *notifications.Client, frame outgoingFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	client.TrySend(data)
}
