package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/services"
)

// RequireAuth resolves the bearer credential into a principal and
// rejects the request if it cannot.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		principal, err := auth.ResolveRequired(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(RawTokenKey, token)
		c.Next()
	}
}

// OptionalAuth resolves a credential when one is present. Requests
// without a valid credential continue anonymously; they are never
// rejected here.
func OptionalAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err == nil && token != "" {
			if principal := auth.ResolveOptional(c.Request.Context(), token); principal != nil {
				c.Set(PrincipalKey, principal)
				c.Set(RawTokenKey, token)
			}
		}
		c.Next()
	}
}

// RequirePermission gates a route on one permission. It must run
// after RequireAuth.
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			AbortWithError(c, models.NewUnauthorized("authorization required"))
			return
		}
		if !principal.HasPermission(perm) {
			AbortWithError(c, models.NewForbidden(fmt.Sprintf("permission '%s' required", perm)))
			return
		}
		c.Next()
	}
}

// bearerToken extracts the credential from the Authorization header.
// A missing header yields an empty token; a present but malformed
// header is an error.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", models.NewUnauthorized("invalid authorization header format")
	}
	return parts[1], nil
}
