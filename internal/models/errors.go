package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the error envelope.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeServiceNotFound    = "SERVICE_NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Token verification outcomes. Expiry is distinct from structural
// invalidity so callers can report it and tell refresh flows apart
// from tampering.
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// GatewayError is an expected, classified failure. It carries the HTTP
// status and envelope code it resolves to at the edge, so handlers and
// middleware can map it without switching on error strings.
type GatewayError struct {
	Status  int
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// NewInvalidRequest reports a request body or parameter the gateway
// could not accept.
func NewInvalidRequest(message string) *GatewayError {
	return &GatewayError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewUnauthorized reports a missing, invalid, expired, or revoked
// credential.
func NewUnauthorized(message string) *GatewayError {
	return &GatewayError{
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbidden reports an authenticated principal lacking a required
// permission.
func NewForbidden(message string) *GatewayError {
	return &GatewayError{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewServiceNotFound reports a proxy target with no configured route.
func NewServiceNotFound(service string) *GatewayError {
	return &GatewayError{
		Status:  http.StatusNotFound,
		Code:    CodeServiceNotFound,
		Message: fmt.Sprintf("service '%s' not found", service),
	}
}

// NewServiceUnavailable reports a routed service that could not be
// reached or did not answer in time.
func NewServiceUnavailable(service string) *GatewayError {
	return &GatewayError{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeServiceUnavailable,
		Message: fmt.Sprintf("service '%s' is unavailable", service),
	}
}
