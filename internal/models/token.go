package models

import "github.com/golang-jwt/jwt/v5"

// TokenKind distinguishes short-lived access tokens from long-lived
// refresh tokens. A refresh token is never accepted for request
// authentication.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims is the payload the gateway signs into every token. Subject,
// ID (the revocation key), IssuedAt, and ExpiresAt ride in the
// embedded registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Kind      TokenKind `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// TokenPair is the credential set minted by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginRequest is the credential submission for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserInfo is the public identity block echoed in login and refresh
// responses.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// LoginResult is the success payload for login and refresh.
type LoginResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	User         UserInfo `json:"user"`
}
