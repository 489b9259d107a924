package server

import (
	"confide/internal/models"
	"confide/internal/store"

	"github.com/gofiber/fiber/v2"
)

// ListRooms handles GET /api/rooms. Super secret rooms only show up for their
// members.
func (s *Server) ListRooms(c *fiber.Ctx) error {
	rooms := s.store.ListRooms(currentUser(c))
	if category := models.RoomCategory(c.Query("category")); category != "" {
		filtered := rooms[:0]
		for _, r := range rooms {
			if r.Category == category {
				filtered = append(filtered, r)
			}
		}
		rooms = filtered
	}
	return c.JSON(emptyIfNil(firstN(rooms, pageLimit(c))))
}

// CreateRoom handles POST /api/rooms. The price depends on the room's tier.
func (s *Server) CreateRoom(c *fiber.Ctx) error {
	var req struct {
		Name          string              `json:"name"`
		Description   string              `json:"description"`
		Category      models.RoomCategory `json:"category"`
		IsPrivate     bool                `json:"is_private"`
		IsSuperSecret bool                `json:"is_super_secret"`
		Password      string              `json:"password"`
		RoomCode      string              `json:"room_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	room, err := s.store.CreateRoom(c.UserContext(), currentUser(c), store.CreateRoomInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		IsPrivate:     req.IsPrivate,
		IsSuperSecret: req.IsSuperSecret,
		Password:      req.Password,
		RoomCode:      req.RoomCode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// JoinSuperSecretRoom handles POST /api/rooms/join-secret
func (s *Server) JoinSuperSecretRoom(c *fiber.Ctx) error {
	var req struct {
		RoomCode string `json:"room_code"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	room, err := s.store.JoinSuperSecretRoom(c.UserContext(), currentUser(c), req.RoomCode, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// GetRoom handles GET /api/rooms/:id
func (s *Server) GetRoom(c *fiber.Ctx) error {
	room, err := s.store.Room(currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// JoinRoom handles POST /api/rooms/:id/join. The body is optional and only
// needed for password protected rooms.
func (s *Server) JoinRoom(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	room, err := s.store.JoinRoom(c.UserContext(), currentUser(c), c.Params("id"), req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// LeaveRoom handles POST /api/rooms/:id/leave
func (s *Server) LeaveRoom(c *fiber.Ctx) error {
	room, err := s.store.LeaveRoom(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// GetRoomMessages handles GET /api/rooms/:id/messages
func (s *Server) GetRoomMessages(c *fiber.Ctx) error {
	msgs, err := s.store.RoomMessages(currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(emptyIfNil(lastN(msgs, pageLimit(c))))
}

// SendRoomMessage handles POST /api/rooms/:id/messages
func (s *Server) SendRoomMessage(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	msg, err := s.store.SendRoomMessage(c.UserContext(), currentUser(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// KickUser handles POST /api/rooms/:id/kick/:userId
func (s *Server) KickUser(c *fiber.Ctx) error {
	room, err := s.store.KickUserFromRoom(c.UserContext(), currentUser(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// BanUser handles POST /api/rooms/:id/ban/:userId
func (s *Server) BanUser(c *fiber.Ctx) error {
	room, err := s.store.BanUserFromRoom(c.UserContext(), currentUser(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// MakeAdmin handles POST /api/rooms/:id/admins/:userId
func (s *Server) MakeAdmin(c *fiber.Ctx) error {
	room, err := s.store.MakeUserAdmin(c.UserContext(), currentUser(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}
