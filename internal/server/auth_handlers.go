package server

import (
	"strings"
	"time"

	"confide/internal/models"
	"confide/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 7 * 24 * time.Hour

// Signup handles POST /api/auth/signup. An optional referral_code is redeemed
// for the new account; a bad code does not undo the signup.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	ctx := c.UserContext()
	user, err := s.store.Register(ctx, store.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{}
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		if _, err := s.store.UseReferralCode(ctx, user.ID, code); err != nil {
			resp["referral_error"] = models.ErrorResponse{Error: err.Error(), Code: models.ErrorCode(err)}
		} else if fresh, err := s.store.User(user.ID); err == nil {
			user = fresh
		}
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	resp["token"] = token
	resp["user"] = user
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		if models.HasCode(err, models.CodeInternal) {
			return respondError(c, err)
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (s *Server) generateToken(userID, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"iss":      "confide-api",
		"aud":      "confide-client",
		"exp":      now.Add(tokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	})
	return token.SignedString([]byte(s.config.JWTSecret))
}
