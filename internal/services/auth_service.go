package services

import (
	"context"
	"errors"

	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/repository"
	"go.uber.org/zap"
)

// AuthService resolves bearer credentials into principals. Resolution
// runs verify, blacklist, kind, payload, and session checks in a fixed
// order so every rejection reason is deterministic.
type AuthService struct {
	tokens   *TokenService
	sessions *repository.SessionRepository
	logger   *zap.Logger
}

func NewAuthService(tokens *TokenService, sessions *repository.SessionRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// ResolveRequired turns a bearer credential into a Principal or
// reports exactly why it cannot. Every failure is a 401-shaped
// GatewayError.
func (s *AuthService) ResolveRequired(ctx context.Context, credential string) (*models.Principal, error) {
	claims, err := s.validate(ctx, credential, models.TokenKindAccess)
	if err != nil {
		return nil, err
	}

	return &models.Principal{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: models.PermissionsForRole(claims.Role),
		SessionID:   claims.SessionID,
	}, nil
}

// ValidateRefresh runs a refresh credential through the same pipeline
// as access resolution, with the kind requirement flipped. The claims
// come back so the caller can mint a replacement pair.
func (s *AuthService) ValidateRefresh(ctx context.Context, credential string) (*models.Claims, error) {
	return s.validate(ctx, credential, models.TokenKindRefresh)
}

func (s *AuthService) validate(ctx context.Context, credential string, kind models.TokenKind) (*models.Claims, error) {
	if credential == "" {
		return nil, models.NewUnauthorized("authorization required")
	}

	claims, err := s.tokens.Verify(credential)
	if err != nil {
		if errors.Is(err, models.ErrTokenExpired) {
			return nil, models.NewUnauthorized("token has expired")
		}
		return nil, models.NewUnauthorized("invalid token")
	}

	// Blacklist check runs only after the signature holds. A store
	// failure denies: a token that cannot be cleared is not trusted.
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation check failed", zap.String("token_id", claims.ID), zap.Error(err))
		return nil, models.NewUnauthorized("unable to validate credentials")
	}
	if revoked {
		return nil, models.NewUnauthorized("token has been revoked")
	}

	if claims.Kind != kind {
		return nil, models.NewUnauthorized("invalid token type")
	}
	if claims.Subject == "" || claims.Email == "" || claims.Role == "" {
		return nil, models.NewUnauthorized("invalid token payload")
	}

	if claims.SessionID != "" {
		session, err := s.sessions.Get(ctx, claims.SessionID)
		if err != nil {
			s.logger.Error("session lookup failed", zap.String("session_id", claims.SessionID), zap.Error(err))
			return nil, models.NewUnauthorized("invalid session")
		}
		if session == nil || session.SubjectID != claims.Subject {
			return nil, models.NewUnauthorized("invalid session")
		}
	}

	return claims, nil
}

// ResolveOptional resolves a credential if one is present and valid.
// A missing or rejected credential yields an anonymous request, never
// an error.
func (s *AuthService) ResolveOptional(ctx context.Context, credential string) *models.Principal {
	if credential == "" {
		return nil
	}
	principal, err := s.ResolveRequired(ctx, credential)
	if err != nil {
		s.logger.Debug("optional credential rejected", zap.Error(err))
		return nil
	}
	return principal
}
