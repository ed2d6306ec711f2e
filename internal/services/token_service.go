package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/repository"
)

// TokenService mints and verifies the gateway's signed tokens and
// handles revocation. Verification alone never consults the blacklist;
// resolution layers that check on top.
type TokenService struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations *repository.RevocationRepository
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, revocations *repository.RevocationRepository) *TokenService {
	return &TokenService{
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		revocations: revocations,
	}
}

// IssueAccessToken mints a short-lived access token for the subject.
func (s *TokenService) IssueAccessToken(subjectID, email string, role models.Role, sessionID string) (string, error) {
	return s.issue(models.TokenKindAccess, s.accessTTL, subjectID, email, role, sessionID)
}

// IssueRefreshToken mints a long-lived refresh token for the subject.
func (s *TokenService) IssueRefreshToken(subjectID, email string, role models.Role, sessionID string) (string, error) {
	return s.issue(models.TokenKindRefresh, s.refreshTTL, subjectID, email, role, sessionID)
}

func (s *TokenService) issue(kind models.TokenKind, ttl time.Duration, subjectID, email string, role models.Role, sessionID string) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     email,
		Role:      role,
		Kind:      kind,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its
// claims. Failures are classified as models.ErrTokenExpired or
// models.ErrTokenInvalid; expiry is only reported for tokens whose
// signature verifies.
func (s *TokenService) Verify(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// Revoke blacklists the token for exactly its remaining lifetime. The
// signature must verify, but an already-expired token is accepted and
// simply has nothing left to revoke.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return models.ErrTokenInvalid
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return models.ErrTokenInvalid
	}
	return s.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// IsRevoked reports whether the token ID has been blacklisted.
func (s *TokenService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.revocations.IsRevoked(ctx, tokenID)
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
