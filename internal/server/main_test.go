package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"confide/internal/config"
	"confide/internal/notifications"
	"confide/internal/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-123456"

type testEnv struct {
	server *Server
	store  *store.Store
	bus    *notifications.MemoryBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	bus := notifications.NewMemoryBus()
	st := store.New(store.Options{Publisher: bus, BcryptCost: bcrypt.MinCost})
	cfg := &config.Config{
		JWTSecret:          testSecret,
		Port:               "0",
		Env:                "test",
		AllowedOrigins:     "http://localhost:5173",
		ReferralBaseURL:    "https://confide.test",
		PresenceTTLSeconds: 90,
	}
	s, err := New(Deps{Config: cfg, Store: st, Bus: bus})
	require.NoError(t, err)
	t.Cleanup(func() { s.shutdownFn() })
	return &testEnv{server: s, store: st, bus: bus}
}

// call performs a request against the app and returns the status and body.
func (e *testEnv) call(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type session struct {
	ID    string
	Token string
}

// signup creates an account over HTTP and returns its id and token.
func (e *testEnv) signup(t *testing.T, username string) session {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	resp := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, body)
	return session{ID: resp.User.ID, Token: resp.Token}
}
