package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/repository"
	"github.com/joegr/ReTurni/internal/services"
	"github.com/joegr/ReTurni/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memoryUserStore backs the auth endpoints without a database.
type memoryUserStore struct {
	users map[string]*models.User
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return user, nil
}

type authTestStack struct {
	engine   *gin.Engine
	tokens   *services.TokenService
	auth     *services.AuthService
	sessions *repository.SessionRepository
}

func newAuthTestStack(t *testing.T) *authTestStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	_, rdb := testutils.NewTestRedis(t)
	logger := zaptest.NewLogger(t)

	sessions := repository.NewSessionRepository(rdb, 24*time.Hour, logger)
	revocations := repository.NewRevocationRepository(rdb, logger)
	tokens := services.NewTokenService("test-secret", 30*time.Minute, 7*24*time.Hour, revocations)
	auth := services.NewAuthService(tokens, sessions, logger)
	dispatcher := dispatch.NewDispatcher("", nil, logger)

	hash, err := services.HashPassword("correct horse")
	require.NoError(t, err)
	users := &memoryUserStore{users: map[string]*models.User{
		"admin@tournament.com": {
			ID:           "user-1",
			Email:        "admin@tournament.com",
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		},
	}}

	handler := NewAuthHandler(users, tokens, auth, sessions, dispatcher)

	engine := gin.New()
	engine.Use(middleware.RequestID(logger, "1.0.0"))
	engine.POST("/auth/login", handler.Login)
	engine.POST("/auth/refresh", handler.Refresh)
	engine.POST("/auth/logout", middleware.RequireAuth(auth), handler.Logout)

	return &authTestStack{
		engine:   engine,
		tokens:   tokens,
		auth:     auth,
		sessions: sessions,
	}
}

func (s *authTestStack) post(t *testing.T, path, body, token string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("{}")
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func loginResult(t *testing.T, resp models.APIResponse) models.LoginResult {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result models.LoginResult
	require.NoError(t, json.Unmarshal(raw, &result))
	return result
}

func TestLogin(t *testing.T) {
	stack := newAuthTestStack(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/login", `{"email":"admin@tournament.com","password":"correct horse"}`, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, resp.Success)

		result := loginResult(t, resp)
		assert.Equal(t, "bearer", result.TokenType)
		assert.Equal(t, "user-1", result.User.ID)
		assert.Equal(t, models.RoleAdmin, result.User.Role)

		// Tokens resolve and are bound to a live session.
		principal, err := stack.auth.ResolveRequired(ctx, result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", principal.SubjectID)
		require.NotEmpty(t, principal.SessionID)

		session, err := stack.sessions.Get(ctx, principal.SessionID)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "user-1", session.SubjectID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/login", `{"email":"admin@tournament.com","password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, models.CodeUnauthorized, resp.Error.Code)
		assert.Equal(t, "invalid credentials", resp.Error.Message)
	})

	t.Run("unknown user", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/login", `{"email":"nobody@tournament.com","password":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		// Unknown user and wrong password are indistinguishable.
		assert.Equal(t, "invalid credentials", resp.Error.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/login", `{"email":"admin@tournament.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.CodeInvalidRequest, resp.Error.Code)
	})
}

func TestRefresh(t *testing.T) {
	stack := newAuthTestStack(t)
	ctx := context.Background()

	_, resp := stack.post(t, "/auth/login", `{"email":"admin@tournament.com","password":"correct horse"}`, "")
	first := loginResult(t, resp)

	t.Run("rotates the pair", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, resp.Success)

		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var pair models.TokenPair
		require.NoError(t, json.Unmarshal(raw, &pair))

		_, err = stack.auth.ResolveRequired(ctx, pair.AccessToken)
		assert.NoError(t, err)

		// The spent refresh token is revoked and cannot be replayed.
		w, resp = stack.post(t, "/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token has been revoked", resp.Error.Message)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/refresh", `{"refresh_token":"`+first.AccessToken+`"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid token type", resp.Error.Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		w, _ := stack.post(t, "/auth/refresh", `{"refresh_token":"not-a-token"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogout(t *testing.T) {
	stack := newAuthTestStack(t)
	ctx := context.Background()

	_, resp := stack.post(t, "/auth/login", `{"email":"admin@tournament.com","password":"correct horse"}`, "")
	result := loginResult(t, resp)

	t.Run("requires a principal", func(t *testing.T) {
		w, _ := stack.post(t, "/auth/logout", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revokes token and deletes session", func(t *testing.T) {
		w, resp := stack.post(t, "/auth/logout", "", result.AccessToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)

		// The access token dies with the logout even though its expiry
		// is still in the future.
		_, err := stack.auth.ResolveRequired(ctx, result.AccessToken)
		assert.Error(t, err)

		// The refresh token shared the session, so it dies too.
		_, err = stack.auth.ValidateRefresh(ctx, result.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("idempotent", func(t *testing.T) {
		w, _ := stack.post(t, "/auth/logout", "", result.AccessToken)
		// The token is revoked now, so re-auth fails before the handler.
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
