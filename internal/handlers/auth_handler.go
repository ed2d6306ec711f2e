package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/repository"
	"github.com/joegr/ReTurni/internal/services"
	"go.uber.org/zap"
)

// UserStore is the user lookup surface the auth endpoints need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthHandler serves login, refresh, and logout. These are the only
// endpoints the gateway answers itself with domain logic; everything
// else is proxied.
type AuthHandler struct {
	users      UserStore
	tokens     *services.TokenService
	auth       *services.AuthService
	sessions   *repository.SessionRepository
	dispatcher *dispatch.Dispatcher
}

func NewAuthHandler(users UserStore, tokens *services.TokenService, auth *services.AuthService, sessions *repository.SessionRepository, dispatcher *dispatch.Dispatcher) *AuthHandler {
	return &AuthHandler{
		users:      users,
		tokens:     tokens,
		auth:       auth,
		sessions:   sessions,
		dispatcher: dispatcher,
	}
}

// Login exchanges email and password for a token pair. Which part of
// the credential failed is never disclosed.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, models.NewInvalidRequest("email and password are required"))
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if user == nil || !services.VerifyPassword(req.Password, user.PasswordHash) {
		middleware.AbortWithError(c, models.NewUnauthorized("invalid credentials"))
		return
	}

	// A session store outage degrades to unbound tokens rather than
	// blocking logins.
	sessionID := ""
	session, err := h.sessions.Create(ctx, user.ID, map[string]string{"ip": c.ClientIP()})
	if err != nil {
		logger.Warn("session creation failed, issuing unbound tokens", zap.Error(err))
	} else {
		sessionID = session.ID
	}

	accessToken, err := h.tokens.IssueAccessToken(user.ID, user.Email, user.Role, sessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	refreshToken, err := h.tokens.IssueRefreshToken(user.ID, user.Email, user.Role, sessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.dispatcher.Enqueue(dispatch.Event{
		Type:      dispatch.EventUserLogin,
		Actor:     user.ID,
		RequestID: middleware.RequestIDFromContext(c),
		Detail:    map[string]string{"email": user.Email, "ip": c.ClientIP()},
	})
	logger.Info("user logged in", zap.String("subject_id", user.ID))

	c.JSON(http.StatusOK, models.NewSuccessResponse(middleware.RequestIDFromContext(c), models.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		User:         user.Info(),
	}))
}

// Refresh rotates a refresh token into a new pair. The submitted token
// is revoked on success so each refresh credential works once.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, models.NewInvalidRequest("refresh_token is required"))
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	claims, err := h.auth.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if err := h.tokens.Revoke(ctx, req.RefreshToken); err != nil {
		logger.Warn("spent refresh token not revoked", zap.String("token_id", claims.ID), zap.Error(err))
	}

	accessToken, err := h.tokens.IssueAccessToken(claims.Subject, claims.Email, claims.Role, claims.SessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	refreshToken, err := h.tokens.IssueRefreshToken(claims.Subject, claims.Email, claims.Role, claims.SessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.dispatcher.Enqueue(dispatch.Event{
		Type:      dispatch.EventTokenRefreshed,
		Actor:     claims.Subject,
		RequestID: middleware.RequestIDFromContext(c),
	})

	c.JSON(http.StatusOK, models.NewSuccessResponse(middleware.RequestIDFromContext(c), models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}))
}

// Logout revokes the presented access token and ends its session.
// Cleanup failures are logged, not surfaced; the client is logging out
// either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)
	principal := middleware.PrincipalFromContext(c)

	if raw := middleware.RawTokenFromContext(c); raw != "" {
		if err := h.tokens.Revoke(ctx, raw); err != nil {
			logger.Warn("token revocation failed during logout", zap.Error(err))
		}
	}

	if principal != nil && principal.SessionID != "" {
		if err := h.sessions.Delete(ctx, principal.SessionID); err != nil {
			logger.Warn("session delete failed during logout",
				zap.String("session_id", principal.SessionID), zap.Error(err))
		}
	}

	actor := ""
	if principal != nil {
		actor = principal.SubjectID
	}
	h.dispatcher.Enqueue(dispatch.Event{
		Type:      dispatch.EventUserLogout,
		Actor:     actor,
		RequestID: middleware.RequestIDFromContext(c),
	})

	c.JSON(http.StatusOK, models.NewSuccessResponse(middleware.RequestIDFromContext(c),
		gin.H{"message": "successfully logged out"}))
}
