package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/asiedupress/storefront-service/internal/domain"
)

// HMACLinkSigner signs download-link fields with HMAC-SHA256 over the fields
// joined by ":". It refuses to operate without a secret; there is no fallback
// key, so an unconfigured deployment cannot silently mint forgeable links.
type HMACLinkSigner struct {
	secret []byte
}

func NewHMACLinkSigner(secret string) *HMACLinkSigner {
	return &HMACLinkSigner{secret: []byte(secret)}
}

func (s *HMACLinkSigner) Sign(fields []string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: download secret is not set", domain.ErrNotConfigured)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(fields, ":")))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time. With no
// secret configured every candidate is rejected.
func (s *HMACLinkSigner) Verify(fields []string, candidate string) bool {
	if len(s.secret) == 0 {
		return false
	}
	expected, err := s.Sign(fields)
	if err != nil {
		return false
	}
	if len(candidate) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(candidate), []byte(expected))
}
