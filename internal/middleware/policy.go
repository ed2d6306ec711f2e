package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/services"
)

// PolicyMode names how much identity a proxied service demands. The
// zero value is optional, which is also the default for services with
// no configured policy.
type PolicyMode int

const (
	// PolicyOptional resolves a credential when one is present but
	// never rejects anonymous requests.
	PolicyOptional PolicyMode = iota
	// PolicyPublic skips credential resolution entirely.
	PolicyPublic
	// PolicyRequired rejects requests without a valid principal.
	PolicyRequired
)

// Policy is one service's access requirement. Permission is only
// checked when Mode is PolicyRequired.
type Policy struct {
	Mode       PolicyMode
	Permission models.Permission
}

// ParsePolicies converts the configured service->policy strings into
// typed policies. Accepted values: "public", "optional", "required",
// and "required:<permission>".
func ParsePolicies(raw map[string]string) (map[string]Policy, error) {
	policies := make(map[string]Policy, len(raw))
	for service, value := range raw {
		policy, err := parsePolicy(value)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", service, err)
		}
		policies[service] = policy
	}
	return policies, nil
}

func parsePolicy(value string) (Policy, error) {
	switch {
	case value == "" || value == "optional":
		return Policy{Mode: PolicyOptional}, nil
	case value == "public":
		return Policy{Mode: PolicyPublic}, nil
	case value == "required":
		return Policy{Mode: PolicyRequired}, nil
	case strings.HasPrefix(value, "required:"):
		perm := strings.TrimPrefix(value, "required:")
		if perm == "" {
			return Policy{}, fmt.Errorf("invalid policy %q", value)
		}
		return Policy{Mode: PolicyRequired, Permission: models.Permission(perm)}, nil
	default:
		return Policy{}, fmt.Errorf("invalid policy %q", value)
	}
}

// ServiceAuth applies the per-service access policy to proxied
// requests, keyed by the :service path parameter. Services without an
// entry get the optional policy.
func ServiceAuth(auth *services.AuthService, policies map[string]Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := policies[c.Param("service")]

		if policy.Mode == PolicyPublic {
			c.Next()
			return
		}

		token, err := bearerToken(c)

		if policy.Mode == PolicyOptional {
			if err == nil && token != "" {
				if principal := auth.ResolveOptional(c.Request.Context(), token); principal != nil {
					c.Set(PrincipalKey, principal)
					c.Set(RawTokenKey, token)
				}
			}
			c.Next()
			return
		}

		if err != nil {
			AbortWithError(c, err)
			return
		}
		principal, err := auth.ResolveRequired(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if policy.Permission != "" && !principal.HasPermission(policy.Permission) {
			AbortWithError(c, models.NewForbidden(fmt.Sprintf("permission '%s' required", policy.Permission)))
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(RawTokenKey, token)
		c.Next()
	}
}
