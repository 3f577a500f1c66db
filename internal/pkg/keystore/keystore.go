package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrKeyLoad is returned for every failure to turn a file into a usable key.
var ErrKeyLoad = errors.New("keystore: failed to load key")

const (
	blockPKCS1Private = "RSA PRIVATE KEY"
	blockPKCS8Private = "PRIVATE KEY"
	blockPKIXPublic   = "PUBLIC KEY"
	blockPKCS1Public  = "RSA PUBLIC KEY"
)

var (
	errNoPEMBlock       = errors.New("no PEM block found")
	errEncryptedPEM     = errors.New("encrypted PEM blocks are not supported")
	errNotRSA           = errors.New("key is not an RSA key")
	errUnsupportedBlock = errors.New("unsupported PEM block type")
)

// LoadPrivateKey reads the file at path and parses it as an RSA private key.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	// #nosec G304 -- path is from trusted config.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrKeyLoad, path, err)
	}

	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}

	return key, nil
}

// LoadPublicKey reads the file at path and parses it as an RSA public key.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	// #nosec G304 -- path is from trusted config.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrKeyLoad, path, err)
	}

	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}

	return key, nil
}

// ParsePrivateKey parses a PKCS#1 or PKCS#8 PEM encoded RSA private key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, err := decodeBlock(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case blockPKCS1Private:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, err)
		}
		return key, nil

	case blockPKCS8Private:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, errNotRSA)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: %w %q", ErrKeyLoad, errUnsupportedBlock, block.Type)
	}
}

// ParsePublicKey parses a PKIX or PKCS#1 PEM encoded RSA public key.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, err := decodeBlock(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case blockPKIXPublic:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, errNotRSA)
		}
		return key, nil

	case blockPKCS1Public:
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyLoad, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: %w %q", ErrKeyLoad, errUnsupportedBlock, block.Type)
	}
}

func decodeBlock(data []byte) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyLoad, errNoPEMBlock)
	}

	if _, encrypted := block.Headers["Proc-Type"]; encrypted {
		return nil, fmt.Errorf("%w: %w", ErrKeyLoad, errEncryptedPEM)
	}
	if block.Type == "ENCRYPTED PRIVATE KEY" {
		return nil, fmt.Errorf("%w: %w", ErrKeyLoad, errEncryptedPEM)
	}

	return block, nil
}
