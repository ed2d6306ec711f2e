package models

import "time"

// Session is the server-side record backing a logged-in principal.
// Deleting it invalidates every token bound to it, regardless of the
// tokens' own expiry.
type Session struct {
	ID           string            `json:"session_id"`
	SubjectID    string            `json:"subject_id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}
