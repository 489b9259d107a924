package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListFriends handles GET /api/friends
func (s *Server) ListFriends(c *fiber.Ctx) error {
	return c.JSON(emptyIfNil(s.store.Friends(currentUser(c))))
}

// ListFriendRequests handles GET /api/friends/requests
func (s *Server) ListFriendRequests(c *fiber.Ctx) error {
	incoming, outgoing := s.store.FriendRequests(currentUser(c))
	return c.JSON(fiber.Map{
		"incoming": emptyIfNil(incoming),
		"outgoing": emptyIfNil(outgoing),
	})
}

// SendFriendRequest handles POST /api/friends/requests/:userId
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	req, err := s.store.SendFriendRequest(c.UserContext(), currentUser(c), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// AddFriendByUsername handles POST /api/friends/add
func (s *Server) AddFriendByUsername(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c)
	}

	req, err := s.store.AddFriendByUsername(c.UserContext(), currentUser(c), body.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// AcceptFriendRequest handles POST /api/friends/requests/:id/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	req, err := s.store.AcceptFriendRequest(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// DeclineFriendRequest handles POST /api/friends/requests/:id/decline
func (s *Server) DeclineFriendRequest(c *fiber.Ctx) error {
	req, err := s.store.DeclineFriendRequest(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}
