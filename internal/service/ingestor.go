package service

import (
	"context"
	"encoding/json"

	"confide/internal/models"
	"confide/internal/notifications"
	"confide/internal/observability"
)

// MessageSink accepts messages delivered by the bus.
type MessageSink interface {
	IngestMessage(ctx context.Context, msg models.Message) (bool, error)
}

// MessageIngestor feeds message events seen on the bus back into the store.
// Events this node published are already held and are ignored by id.
type MessageIngestor struct {
	bus  notifications.Bus
	sink MessageSink
}

// NewMessageIngestor creates an ingestor.
func NewMessageIngestor(bus notifications.Bus, sink MessageSink) *MessageIngestor {
	return &MessageIngestor{bus: bus, sink: sink}
}

// Start subscribes to user and room topics until ctx ends.
func (m *MessageIngestor) Start(ctx context.Context) error {
	return m.bus.Subscribe(ctx, func(ev models.Event) {
		m.Handle(ctx, ev)
	}, notifications.PatternUsers, notifications.PatternRooms)
}

// Handle ingests ev if it carries a message. It reports whether a new
// message was stored.
func (m *MessageIngestor) Handle(ctx context.Context, ev models.Event) bool {
	if ev.Type != models.EventMessageReceived && ev.Type != models.EventRoomMessage {
		return false
	}
	var msg models.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "undecodable message event", "event_id", ev.ID, "error", err)
		return false
	}
	stored, err := m.sink.IngestMessage(ctx, msg)
	if err != nil {
		observability.GlobalLogger.DebugContext(ctx, "message not ingested",
			"event_id", ev.ID,
			"message_id", msg.ID,
			"code", models.ErrorCode(err),
		)
		return false
	}
	return stored
}
