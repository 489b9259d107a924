package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/notifications
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	userID := currentUser(c)
	items := s.store.Notifications(userID)
	return c.JSON(fiber.Map{
		"notifications": emptyIfNil(firstN(items, pageLimit(c))),
		"unread":        s.store.UnreadNotificationCount(userID),
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	n, err := s.store.MarkNotificationRead(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	count, err := s.store.MarkAllNotificationsRead(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marked": count})
}
