// Package seedcipher decrypts and validates the RSA-OAEP wrapped TOTP seed.
package seedcipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// SeedLength is the number of hex characters in a valid seed (32 bytes).
const SeedLength = 64

const hexAlphabet = "0123456789abcdef"

var (
	// ErrDecryption classifies every cryptographic failure of Decrypt.
	ErrDecryption = errors.New("seedcipher: decryption failed")
	// ErrInvalidSeedLength indicates the plaintext is not exactly SeedLength characters.
	ErrInvalidSeedLength = errors.New("seedcipher: invalid seed length")
	// ErrInvalidSeedCharacters indicates the plaintext contains non lower-case hex characters.
	ErrInvalidSeedCharacters = errors.New("seedcipher: invalid seed characters")
	// ErrEncryption indicates the seed could not be wrapped for the given key.
	ErrEncryption = errors.New("seedcipher: encryption failed")
)

// DecryptionError is returned by Decrypt for malformed base64, key mismatch and
// padding failures. Its message is identical for every cause; Detail is meant
// for server-side logs only and must never reach a client.
type DecryptionError struct {
	detail error
}

// Error implements the error interface.
func (e *DecryptionError) Error() string {
	return ErrDecryption.Error()
}

// Is reports whether target is ErrDecryption.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption //nolint:errorlint // sentinel identity
}

// Detail returns the underlying cause for logging.
func (e *DecryptionError) Detail() string {
	if e.detail == nil {
		return ""
	}
	return e.detail.Error()
}

// Decrypt base64-decodes encrypted, decrypts it with RSA-OAEP (SHA-256, MGF1
// SHA-256, empty label) and validates the plaintext as a hex seed.
func Decrypt(encrypted string, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", &DecryptionError{detail: errors.New("private key is nil")}
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encrypted))
	if err != nil {
		return "", &DecryptionError{detail: fmt.Errorf("base64: %w", err)}
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		return "", &DecryptionError{detail: fmt.Errorf("oaep: %w", err)}
	}

	if !utf8.Valid(plaintext) {
		return "", &DecryptionError{detail: errors.New("plaintext is not valid UTF-8")}
	}

	seed := strings.TrimSpace(string(plaintext))
	if err := Validate(seed); err != nil {
		return "", err
	}

	return seed, nil
}

// Validate checks length first, then the character set.
func Validate(seed string) error {
	if utf8.RuneCountInString(seed) != SeedLength {
		return ErrInvalidSeedLength
	}

	for i := 0; i < len(seed); i++ {
		if strings.IndexByte(hexAlphabet, seed[i]) < 0 {
			return ErrInvalidSeedCharacters
		}
	}

	return nil
}

// Encrypt wraps a plaintext seed for pub using the same OAEP parameters as
// Decrypt and returns it base64 encoded. The seed is not validated, which lets
// callers produce deliberately malformed payloads.
func Encrypt(seed string, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: public key is nil", ErrEncryption)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(seed), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
