// Package proof builds the sign-then-encrypt commit proof.
//
// A commit identifier is signed with RSASSA-PSS by the submitter and the raw
// signature is then RSA-OAEP encrypted for the counterparty, who alone can
// unwrap and verify it.
package proof

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrSigning is returned when a signature cannot be produced.
	ErrSigning = errors.New("proof: signing failed")
	// ErrEncryption is returned when a signature cannot be wrapped for the counterparty.
	ErrEncryption = errors.New("proof: encryption failed")
)

var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// Sign returns the PSS signature (SHA-256, MGF1 SHA-256, maximal salt) of the
// UTF-8 bytes of message.
func Sign(message string, key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is nil", ErrSigning)
	}

	digest := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return sig, nil
}

// Verify reports whether sig is a valid PSS signature of message under pub.
func Verify(message string, sig []byte, pub *rsa.PublicKey) bool {
	if pub == nil {
		return false
	}

	digest := sha256.Sum256([]byte(message))

	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOptions) == nil
}

// Capacity is the largest plaintext in bytes that OAEP with SHA-256 can wrap
// under pub.
func Capacity(pub *rsa.PublicKey) int {
	if pub == nil {
		return 0
	}

	return pub.Size() - 2*sha256.Size - 2
}

// EncryptSignature wraps sig for pub with RSA-OAEP (SHA-256, empty label) and
// returns the ciphertext base64 encoded.
//
// The signature must fit in a single OAEP block: a 2048-bit signer needs a
// counterparty key of at least 3072 bits. Larger signatures are rejected up
// front; no chunking is attempted.
func EncryptSignature(sig []byte, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: public key is nil", ErrEncryption)
	}

	if limit := Capacity(pub); len(sig) > limit {
		return "", fmt.Errorf("%w: signature is %d bytes, key wraps at most %d", ErrEncryption, len(sig), limit)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, sig, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptSignature is the counterparty side of EncryptSignature.
func DecryptSignature(encoded string, key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is nil", ErrEncryption)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	sig, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	return sig, nil
}
