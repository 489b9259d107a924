package store

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"confide/internal/models"
)

const (
	maxTitleLength       = 200
	maxRoomNameLength    = 80
	maxDescriptionLength = 500
	minPasswordLength    = 6
)

var usernamePattern = regexp.MustCompile(`^\w{3,32}$`)

// requireText rejects blank or oversized text and returns it trimmed.
func requireText(field, value string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", models.NewValidationError(field + " cannot be empty")
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", models.NewValidationError(field + " is too long")
	}
	return trimmed, nil
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return "", models.NewValidationError("Username must be 3-32 letters, digits or underscores")
	}
	return username, nil
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.NewValidationError("Invalid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return models.NewValidationError("Password must be at least 6 characters")
	}
	return nil
}

func lessByTime(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.Before(b)
}
