package server

import (
	"confide/internal/models"
	"confide/internal/store"

	"github.com/gofiber/fiber/v2"
)

// SendMessage handles POST /api/messages. Each private message costs one credit.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverID string             `json:"receiver_id"`
		Content    string             `json:"content"`
		Type       models.MessageType `json:"type"`
		ImageURL   string             `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	msg, err := s.store.SendMessage(c.UserContext(), currentUser(c), store.SendMessageInput{
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Type:       req.Type,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetConversation handles GET /api/messages/conversation/:userId
func (s *Server) GetConversation(c *fiber.Ctx) error {
	other := c.Params("userId")
	if _, err := s.store.User(other); err != nil {
		return respondError(c, err)
	}
	msgs := s.store.Conversation(currentUser(c), other)
	return c.JSON(emptyIfNil(lastN(msgs, pageLimit(c))))
}

// MarkMessageRead handles POST /api/messages/:id/read
func (s *Server) MarkMessageRead(c *fiber.Ctx) error {
	msg, err := s.store.MarkMessageRead(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}
