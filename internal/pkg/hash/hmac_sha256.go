package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 produces hex encoded HMAC-SHA256 digests under a fixed secret.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a new hasher with a secret.
func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns the lower-case hex HMAC-SHA256 of str.
func (s *HMACSHA256) Hash(str string) string {
	return hex.EncodeToString(s.sum(str))
}

// Verify reports in constant time whether hashed is the digest of str.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	raw, err := hex.DecodeString(hashed)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, s.sum(str))
}

func (s *HMACSHA256) sum(str string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(str))
	return h.Sum(nil)
}
