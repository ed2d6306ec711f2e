package models

// Principal is the resolved identity attached to a request for the
// duration of its processing. It is derived from a verified token plus
// the grant table and is never persisted.
type Principal struct {
	SubjectID   string       `json:"subject_id"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
	SessionID   string       `json:"session_id,omitempty"`
}

// HasPermission reports whether the principal holds the exact
// permission. There is no wildcard or hierarchy expansion.
func (p *Principal) HasPermission(perm Permission) bool {
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal's role matches exactly.
func (p *Principal) HasRole(role Role) bool {
	return p.Role == role
}

// HasAnyRole reports whether the principal's role is one of the given
// roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}
