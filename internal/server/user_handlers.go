package server

import (
	"confide/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.store.User(currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ListUsers handles GET /api/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users := s.store.ListUsers()
	offset := c.QueryInt("offset", 0)
	if offset < 0 || offset > len(users) {
		offset = len(users)
	}
	return c.JSON(emptyIfNil(firstN(users[offset:], pageLimit(c))))
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.store.User(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserByUsername handles GET /api/users/by-username/:username
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	user, err := s.store.UserByUsername(c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetBalance handles GET /api/credits
func (s *Server) GetBalance(c *fiber.Ctx) error {
	credits, err := s.store.Balance(currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"credits": credits})
}

// TopUp handles POST /api/credits/topup
func (s *Server) TopUp(c *fiber.Ctx) error {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	credits, err := s.store.TopUp(c.UserContext(), currentUser(c), req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"credits": credits})
}

// GetPreferences handles GET /api/preferences
func (s *Server) GetPreferences(c *fiber.Ctx) error {
	prefs, err := s.store.Preferences(currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(prefs)
}

// UpdatePreferences handles PUT /api/preferences. Sections missing from the
// body keep their current values.
func (s *Server) UpdatePreferences(c *fiber.Ctx) error {
	var patch models.PreferencesPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c)
	}

	prefs, err := s.store.UpdatePreferences(c.UserContext(), currentUser(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(prefs)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUser(c)),
	})
}
