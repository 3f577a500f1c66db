// Package sealer provides authenticated at-rest encryption for small secrets.
//
// Values are sealed with AES-256-GCM. The key for each Scope is derived from a
// master key with HKDF-SHA256, and the scope is bound into the ciphertext as
// additional data, so a value sealed for one slot cannot be opened for another.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Sealed layout:
// [0..1]   uint16 format version
// [2..13]  12 byte nonce
// [14..]   gcm.Seal output (ciphertext + tag)
const formatVersion uint16 = 1

const (
	nonceSize = 12
	keyLen    = 32
)

var (
	// ErrNotConfigured indicates a nil sealer or key provider.
	ErrNotConfigured = errors.New("sealer: not configured")
	// ErrEmptyPlaintext indicates there is nothing to seal.
	ErrEmptyPlaintext = errors.New("sealer: plaintext is empty")
	// ErrInvalidKeyLength indicates the master key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("sealer: invalid key length")
	// ErrMalformed indicates the sealed value is truncated or of an unknown version.
	ErrMalformed = errors.New("sealer: malformed sealed value")
	// ErrOpenFailed indicates authentication failed: wrong key, wrong scope or tampering.
	ErrOpenFailed = errors.New("sealer: open failed")
)

// Scope identifies what a sealed value belongs to.
type Scope struct {
	// Purpose names the kind of secret, e.g. "totp_seed".
	Purpose string
	// Slot names the storage location, e.g. a file path or redis key.
	Slot string
}

func (s Scope) info() []byte {
	return fmt.Appendf(nil, "purpose=%s\nslot=%s\n", s.Purpose, s.Slot)
}

// KeyProvider returns the AES-256 key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// HKDFKeyProvider derives per-scope keys from a single master key.
type HKDFKeyProvider struct {
	master []byte
}

// NewHKDFKeyProvider validates and copies master.
func NewHKDFKeyProvider(master []byte) (*HKDFKeyProvider, error) {
	if len(master) != keyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(master), keyLen)
	}

	return &HKDFKeyProvider{master: append([]byte(nil), master...)}, nil
}

// NewHKDFKeyProviderFromBase64 decodes a standard base64 master key.
func NewHKDFKeyProviderFromBase64(encoded string) (*HKDFKeyProvider, error) {
	master, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, err)
	}

	return NewHKDFKeyProvider(master)
}

// Key implements KeyProvider.
func (p *HKDFKeyProvider) Key(scope Scope) ([]byte, error) {
	if p == nil || len(p.master) == 0 {
		return nil, ErrNotConfigured
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.master, nil, scope.info()), key); err != nil {
		return nil, fmt.Errorf("sealer: derive key: %w", err)
	}

	return key, nil
}

// AESGCM seals and opens values with keys from a KeyProvider.
type AESGCM struct {
	keys KeyProvider
}

// NewAESGCM returns an AESGCM backed by keys.
func NewAESGCM(keys KeyProvider) *AESGCM {
	return &AESGCM{keys: keys}
}

// Seal encrypts plaintext for scope.
func (a *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	gcm, err := a.aead(scope)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealer: nonce: %w", err)
	}

	out := make([]byte, 2+nonceSize, 2+nonceSize+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out[0:2], formatVersion)
	copy(out[2:], nonce)

	return gcm.Seal(out, nonce, plaintext, scopeAAD(scope)), nil
}

// Open reverses Seal. Every authentication failure is reported as ErrOpenFailed.
func (a *AESGCM) Open(sealed []byte, scope Scope) ([]byte, error) {
	if len(sealed) < 2+nonceSize+1 {
		return nil, ErrMalformed
	}

	if v := binary.BigEndian.Uint16(sealed[0:2]); v != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrMalformed, v)
	}

	gcm, err := a.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, sealed[2:2+nonceSize], sealed[2+nonceSize:], scopeAAD(scope))
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plain, nil
}

// SealString seals s and returns it base64 encoded, for text-only backends.
func (a *AESGCM) SealString(s string, scope Scope) (string, error) {
	sealed, err := a.Seal([]byte(s), scope)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (a *AESGCM) OpenString(encoded string, scope Scope) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	plain, err := a.Open(sealed, scope)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}

func (a *AESGCM) aead(scope Scope) (cipher.AEAD, error) {
	if a == nil || a.keys == nil {
		return nil, ErrNotConfigured
	}

	key, err := a.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("sealer: key provider: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), keyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: aes: %w", err)
	}

	return cipher.NewGCM(block)
}

// scopeAAD is fixed length so no separator can make two scopes collide.
func scopeAAD(s Scope) []byte {
	sum := sha256.Sum256(s.info())
	return sum[:]
}
