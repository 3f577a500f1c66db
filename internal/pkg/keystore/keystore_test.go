package keystore_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/shandysiswandi/seedotp/internal/pkg/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePEM(t *testing.T, name, blockType string, der []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestLoadPrivateKey(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecPKCS8, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "pkcs1", path: writePEM(t, "pkcs1.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))},
		{name: "pkcs8", path: writePEM(t, "pkcs8.pem", "PRIVATE KEY", pkcs8)},
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.pem"), wantErr: true},
		{name: "not rsa", path: writePEM(t, "ec.pem", "PRIVATE KEY", ecPKCS8), wantErr: true},
		{name: "public block", path: writePEM(t, "pub.pem", "PUBLIC KEY", []byte{1, 2, 3}), wantErr: true},
		{name: "garbage der", path: writePEM(t, "bad.pem", "RSA PRIVATE KEY", []byte("garbage")), wantErr: true},
		{name: "encrypted", path: writePEM(t, "enc.pem", "ENCRYPTED PRIVATE KEY", []byte("x")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keystore.LoadPrivateKey(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, keystore.ErrKeyLoad)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.True(t, key.Equal(got))
		})
	}
}

func TestLoadPublicKey(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkix, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "pkix", path: writePEM(t, "pkix.pem", "PUBLIC KEY", pkix)},
		{name: "pkcs1", path: writePEM(t, "pkcs1.pem", "RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&key.PublicKey))},
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.pem"), wantErr: true},
		{name: "private block", path: writePEM(t, "priv.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keystore.LoadPublicKey(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, keystore.ErrKeyLoad)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.True(t, key.PublicKey.Equal(got))
		})
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	t.Parallel()

	_, err := keystore.ParsePrivateKey([]byte("definitely not pem"))
	require.ErrorIs(t, err, keystore.ErrKeyLoad)
}

func TestParsePrivateKey_LegacyEncryptedHeader(t *testing.T) {
	t.Parallel()

	data := pem.EncodeToMemory(&pem.Block{
		Type:    "RSA PRIVATE KEY",
		Headers: map[string]string{"Proc-Type": "4,ENCRYPTED", "DEK-Info": "AES-256-CBC,00"},
		Bytes:   []byte("ciphertext"),
	})

	_, err := keystore.ParsePrivateKey(data)
	require.ErrorIs(t, err, keystore.ErrKeyLoad)
	assert.Contains(t, err.Error(), "encrypted")
}
