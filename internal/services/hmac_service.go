package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACService signs audit event deliveries so the audit service can
// verify they came from the gateway.
type HMACService struct {
	secret string
}

// NewHMACService creates a new HMAC signing service. An empty secret
// disables signing.
func NewHMACService(secret string) *HMACService {
	return &HMACService{
		secret: secret,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *HMACService) Enabled() bool {
	return s.secret != ""
}

// SignPayload signs a payload using HMAC-SHA256.
func (s *HMACService) SignPayload(payload []byte) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateSignature checks a payload signature in constant time.
func (s *HMACService) ValidateSignature(payload []byte, signature string) bool {
	expected := s.SignPayload(payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}
