package store

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"confide/internal/models"
)

// SendMessageInput is a private message from the caller.
type SendMessageInput struct {
	ReceiverID string
	Content    string
	Type       models.MessageType
	ImageURL   string
}

// SendMessage delivers a private message for one credit.
func (s *Store) SendMessage(ctx context.Context, actorID string, in SendMessageInput) (*models.Message, error) {
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	return result[*models.Message](s.execute(ctx, OpSendMessage, actorID, sendMessagePayload{
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Type:       in.Type,
		ImageURL:   strings.TrimSpace(in.ImageURL),
	}))
}

func validateMessageBody(kind models.MessageType, content, imageURL string) error {
	switch kind {
	case models.MessageTypeText:
		_, err := requireText("Message", content, models.MaxMessageContentLength)
		return err
	case models.MessageTypeImage:
		if imageURL == "" {
			return models.NewValidationError("Image messages need an image URL")
		}
		if utf8.RuneCountInString(content) > models.MaxMessageContentLength {
			return models.NewValidationError("Message is too long")
		}
		return nil
	default:
		return models.NewValidationError("Unknown message type")
	}
}

func (s *Store) planSendMessage(tx *txn, p sendMessagePayload) (func(), error) {
	sender, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if p.ReceiverID == sender.ID {
		return nil, models.NewValidationError("You cannot message yourself")
	}
	receiver, err := s.st.user(p.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := validateMessageBody(p.Type, p.Content, p.ImageURL); err != nil {
		return nil, err
	}
	if err := requireCredits(sender, models.CostSendMessage); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         tx.nextID(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    p.Content,
		Type:       p.Type,
		ImageURL:   p.ImageURL,
		CreatedAt:  tx.cmd.At,
	}
	return func() {
		tx.debit(sender, models.CostSendMessage, reasonMessage)
		s.insertMessage(msg)
		tx.emit(models.EventMessageReceived, models.UserTopic(receiver.ID), msg.Clone())
		if receiver.Preferences.Notifications.Messages {
			s.notify(tx, receiver.ID, models.NotificationMessage, "New message", sender.Username+" sent you a message")
		}
		tx.result = msg.Clone()
	}, nil
}

// SendRoomMessage posts to a room the caller belongs to, for one credit.
func (s *Store) SendRoomMessage(ctx context.Context, actorID, roomID, content string) (*models.Message, error) {
	return result[*models.Message](s.execute(ctx, OpSendRoomMessage, actorID, roomMessagePayload{RoomID: roomID, Content: content}))
}

func (s *Store) planSendRoomMessage(tx *txn, p roomMessagePayload) (func(), error) {
	sender, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	room, err := s.st.room(p.RoomID)
	if err != nil {
		return nil, err
	}
	if room.BannedUsers.Has(sender.ID) {
		return nil, models.NewForbiddenError("You are banned from this room")
	}
	if !room.Members.Has(sender.ID) {
		return nil, models.NewForbiddenError("Join the room before posting")
	}
	if err := validateMessageBody(models.MessageTypeText, p.Content, ""); err != nil {
		return nil, err
	}
	if err := requireCredits(sender, models.CostSendMessage); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        tx.nextID(),
		SenderID:  sender.ID,
		RoomID:    room.ID,
		Content:   p.Content,
		Type:      models.MessageTypeText,
		CreatedAt: tx.cmd.At,
	}
	return func() {
		tx.debit(sender, models.CostSendMessage, reasonMessage)
		s.insertMessage(msg)
		room.LastActivity = tx.cmd.At
		tx.emit(models.EventRoomMessage, models.RoomTopic(room.ID), msg.Clone())
		tx.result = msg.Clone()
	}, nil
}

func (s *Store) insertMessage(msg *models.Message) {
	s.st.messages[msg.ID] = msg
	s.st.messageOrder = append(s.st.messageOrder, msg.ID)
}

// MarkMessageRead marks a private message read. Only the receiver may do so.
func (s *Store) MarkMessageRead(ctx context.Context, actorID, messageID string) (*models.Message, error) {
	return result[*models.Message](s.execute(ctx, OpMarkMessageRead, actorID, idPayload{ID: messageID}))
}

func (s *Store) planMarkMessageRead(tx *txn, p idPayload) (func(), error) {
	msg, ok := s.st.messages[p.ID]
	if !ok {
		return nil, models.NewNotFoundError("Message", p.ID)
	}
	if !msg.IsPrivate() || msg.ReceiverID != tx.cmd.ActorID {
		return nil, models.NewForbiddenError("Only the receiver can mark this message read")
	}
	if msg.IsRead {
		tx.result = msg.Clone()
		return nil, nil
	}
	return func() {
		msg.IsRead = true
		tx.result = msg.Clone()
	}, nil
}

// IngestMessage stores a message delivered by the transport. It reports false
// when a message with the same id is already held.
func (s *Store) IngestMessage(ctx context.Context, msg models.Message) (bool, error) {
	if msg.ID == "" {
		return false, models.NewValidationError("Message id is required")
	}
	return result[bool](s.execute(ctx, OpIngestMessage, msg.SenderID, ingestPayload{Message: msg}))
}

func (s *Store) planIngestMessage(tx *txn, p ingestPayload) (func(), error) {
	msg := p.Message
	if _, held := s.st.messages[msg.ID]; held {
		tx.result = false
		return nil, nil
	}
	if (msg.ReceiverID == "") == (msg.RoomID == "") {
		return nil, models.NewValidationError("Message needs exactly one of receiver or room")
	}
	if _, err := s.st.user(msg.SenderID); err != nil {
		return nil, err
	}
	var room *models.ChatRoom
	if msg.RoomID != "" {
		r, err := s.st.room(msg.RoomID)
		if err != nil {
			return nil, err
		}
		room = r
	} else if _, err := s.st.user(msg.ReceiverID); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	if err := validateMessageBody(msg.Type, msg.Content, msg.ImageURL); err != nil {
		return nil, err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = tx.cmd.At
	}
	stored := msg.Clone()
	return func() {
		s.insertMessage(stored)
		if room != nil && stored.CreatedAt.After(room.LastActivity) {
			room.LastActivity = stored.CreatedAt
		}
		tx.result = true
	}, nil
}

// Conversation returns the private messages between two users, oldest first.
func (s *Store) Conversation(userID, otherID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for _, id := range s.st.messageOrder {
		m := s.st.messages[id]
		if m.IsPrivate() && ((m.SenderID == userID && m.ReceiverID == otherID) || (m.SenderID == otherID && m.ReceiverID == userID)) {
			out = append(out, *m.Clone())
		}
	}
	sortMessages(out)
	return out
}

// RoomMessages returns a room's messages, oldest first. Private rooms are
// readable by members only.
func (s *Store) RoomMessages(viewerID, roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, err := s.visibleRoom(viewerID, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsPrivate && !room.Members.Has(viewerID) {
		return nil, models.NewForbiddenError("Only members can read this room")
	}
	var out []models.Message
	for _, id := range s.st.messageOrder {
		if m := s.st.messages[id]; m.RoomID == roomID {
			out = append(out, *m.Clone())
		}
	}
	sortMessages(out)
	return out, nil
}

func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
