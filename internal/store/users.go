package store

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"confide/internal/models"
)

// RegisterInput holds the fields needed to open an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type presenceChanged struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// Register creates an account with the starting credit balance.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username, err := validateUsername(in.Username)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return result[*models.User](s.execute(ctx, OpRegister, "", registerPayload{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}))
}

func (s *Store) planRegister(tx *txn, p registerPayload) (func(), error) {
	username, err := validateUsername(p.Username)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(p.Email)
	if err != nil {
		return nil, err
	}
	if _, taken := s.st.usernames[strings.ToLower(username)]; taken {
		return nil, models.NewConflictError("Username is already taken")
	}
	if _, taken := s.st.emails[strings.ToLower(email)]; taken {
		return nil, models.NewConflictError("Email is already registered")
	}

	u := &models.User{
		ID:           tx.nextID(),
		Username:     username,
		Email:        email,
		PasswordHash: p.PasswordHash,
		Credits:      models.StartingCredits,
		JoinedAt:     tx.cmd.At,
		Preferences:  models.DefaultPreferences(),
	}
	return func() {
		s.st.users[u.ID] = u
		s.st.usernames[strings.ToLower(username)] = u.ID
		s.st.emails[strings.ToLower(email)] = u.ID
		tx.result = u.Clone()
	}, nil
}

// Authenticate checks an email and password pair.
func (s *Store) Authenticate(email, password string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.st.emails[strings.ToLower(strings.TrimSpace(email))]
	var u *models.User
	if ok {
		u = s.st.users[id].Clone()
	}
	s.mu.RUnlock()

	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return u, nil
}

// User returns a copy of one user.
func (s *Store) User(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.st.user(id)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// UserByUsername resolves a username case-insensitively.
func (s *Store) UserByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.userByUsername(username)
	if !ok {
		return nil, models.NewNotFoundError("User", username)
	}
	return u.Clone(), nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		out = append(out, *u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out
}

// SetPresence marks a user online or offline. Going offline stamps LastSeen.
func (s *Store) SetPresence(ctx context.Context, userID string, online bool) (*models.User, error) {
	return result[*models.User](s.execute(ctx, OpSetPresence, userID, presencePayload{Online: online}))
}

func (s *Store) planSetPresence(tx *txn, p presencePayload) (func(), error) {
	u, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if u.IsOnline == p.Online {
		tx.result = u.Clone()
		return nil, nil
	}
	return func() {
		u.IsOnline = p.Online
		if !p.Online {
			seen := tx.cmd.At
			u.LastSeen = &seen
		}
		if u.Preferences.Privacy.ShowOnlineStatus {
			tx.emit(models.EventPresenceChanged, models.PresenceTopic, presenceChanged{UserID: u.ID, IsOnline: p.Online})
		}
		tx.result = u.Clone()
	}, nil
}

// Preferences returns the user's preferences.
func (s *Store) Preferences(userID string) (models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.st.user(userID)
	if err != nil {
		return models.UserPreferences{}, err
	}
	return u.Preferences, nil
}

// UpdatePreferences replaces the sections present in patch.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, patch models.PreferencesPatch) (models.UserPreferences, error) {
	return result[models.UserPreferences](s.execute(ctx, OpUpdatePreferences, userID, preferencesPayload{Patch: patch}))
}

func (s *Store) planUpdatePreferences(tx *txn, p preferencesPayload) (func(), error) {
	u, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	prefs := u.Preferences
	if t := p.Patch.Theme; t != nil {
		if !t.FontSize.Valid() {
			return nil, models.NewValidationError("Font size must be small, medium or large")
		}
		prefs.Theme = *t
		if strings.TrimSpace(prefs.Theme.Language) == "" {
			prefs.Theme.Language = "en"
		}
	}
	if n := p.Patch.Notifications; n != nil {
		prefs.Notifications = *n
	}
	if pr := p.Patch.Privacy; pr != nil {
		prefs.Privacy = *pr
	}
	return func() {
		u.Preferences = prefs
		tx.result = prefs
	}, nil
}
