package server

import (
	"strings"

	"confide/internal/middleware"
	"confide/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	if models.ErrorCode(err) == "" {
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// pageLimit reads the limit query parameter, clamped to [1, maxPageLimit].
func pageLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit
}

// lastN keeps the newest n entries of an oldest-first slice.
func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// firstN keeps the first n entries of a newest-first slice.
func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func currentUser(c *fiber.Ctx) string {
	return middleware.UserID(c)
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "http://localhost:5173"
	}
	return strings.Join(origins, ",")
}

// emptyIfNil keeps list responses as JSON arrays.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
