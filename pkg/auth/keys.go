// Package auth verifies caller API keys and derives log-safe key fingerprints.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Keyring holds the configured API-key allow-list and a salt for fingerprints.
type Keyring struct {
	keys []string
	salt []byte
}

// NewKeyring builds a keyring from the allow-list. The salt (the configured
// log-encryption key) keeps raw API keys out of logs; it may be empty.
func NewKeyring(keys []string, salt []byte) *Keyring {
	return &Keyring{
		keys: append([]string(nil), keys...),
		salt: append([]byte(nil), salt...),
	}
}

// Verify reports whether key is on the allow-list. Every configured key is
// compared in constant time.
func (k *Keyring) Verify(key string) bool {
	if key == "" {
		return false
	}
	valid := false
	for _, candidate := range k.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid
}

// Fingerprint returns a short HMAC-SHA256 digest of the key for log fields
// and metrics, never the key itself.
func (k *Keyring) Fingerprint(key string) string {
	mac := hmac.New(sha256.New, k.salt)
	mac.Write([]byte(key))
	sum := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if len(sum) > 12 {
		sum = sum[:12]
	}
	return sum
}
