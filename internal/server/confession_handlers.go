package server

import (
	"confide/internal/models"
	"confide/internal/store"

	"github.com/gofiber/fiber/v2"
)

// ListConfessions handles GET /api/confessions.
// Query: category, author ("me" for the caller), saved=true.
func (s *Server) ListConfessions(c *fiber.Ctx) error {
	userID := currentUser(c)
	filter := store.ConfessionFilter{
		Category:  models.ConfessionCategory(c.Query("category")),
		AuthorID:  c.Query("author"),
		SavedOnly: c.QueryBool("saved", false),
	}
	if filter.AuthorID == "me" {
		filter.AuthorID = userID
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown confession category"))
	}

	feed := s.store.ListConfessions(userID, filter)
	return c.JSON(emptyIfNil(firstN(feed, pageLimit(c))))
}

// CreateConfession handles POST /api/confessions
func (s *Server) CreateConfession(c *fiber.Ctx) error {
	var req struct {
		Title    string                    `json:"title"`
		Content  string                    `json:"content"`
		Category models.ConfessionCategory `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	confession, err := s.store.CreateConfession(c.UserContext(), currentUser(c), store.CreateConfessionInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(confession)
}

// GetConfession handles GET /api/confessions/:id
func (s *Server) GetConfession(c *fiber.Ctx) error {
	confession, err := s.store.Confession(currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(confession)
}

// EditConfession handles PUT /api/confessions/:id. Only the author may edit.
func (s *Server) EditConfession(c *fiber.Ctx) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	confession, err := s.store.EditConfession(c.UserContext(), currentUser(c), c.Params("id"), req.Title, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(confession)
}

// DeleteConfession handles DELETE /api/confessions/:id
func (s *Server) DeleteConfession(c *fiber.Ctx) error {
	if err := s.store.DeleteConfession(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeConfession handles POST /api/confessions/:id/like. It toggles.
func (s *Server) LikeConfession(c *fiber.Ctx) error {
	confession, err := s.store.LikeConfession(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(confession)
}

// SaveConfession handles POST /api/confessions/:id/save. It toggles.
func (s *Server) SaveConfession(c *fiber.Ctx) error {
	confession, err := s.store.SaveConfession(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(confession)
}

// AddComment handles POST /api/confessions/:id/comments
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	comment, err := s.store.AddComment(c.UserContext(), currentUser(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// LikeComment handles POST /api/confessions/:id/comments/:commentId/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	comment, err := s.store.LikeComment(c.UserContext(), currentUser(c), c.Params("id"), c.Params("commentId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}
