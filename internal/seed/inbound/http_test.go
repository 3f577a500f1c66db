package inbound_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/clock"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/router"
	"github.com/shandysiswandi/seedotp/internal/pkg/seedcipher"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
	"github.com/shandysiswandi/seedotp/internal/seed/inbound"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSeed = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"

type staticID string

func (s staticID) Generate() string { return string(s) }

type server struct {
	handler http.Handler
	key     *rsa.PrivateKey
	store   *store.Memory
}

func newServer(t *testing.T) *server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(key)
	keyPath := filepath.Join(t.TempDir(), "student_private.pem")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}), 0o600))

	cfg, err := config.NewViperFromBytes("yaml", []byte("app: {}"))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	r := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       staticID("cid-test"),
		Instrument: instrument.NewNoop(),
	})

	st := store.NewMemory()
	inbound.RegisterHTTPEndpoint(r, usecase.New(usecase.Dependency{
		RepoStore:      st,
		Validator:      v,
		PrivateKeyPath: keyPath,
		Totp:           otp.NewTOTP("seedotp", 30, 1, 6),
		Clock:          clock.New(),
		Instrument:     instrument.NewNoop(),
	}))

	return &server{handler: r, key: key, store: st}
}

func (s *server) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (s *server) encrypted(t *testing.T, plaintext string) string {
	t.Helper()

	enc, err := seedcipher.Encrypt(plaintext, &s.key.PublicKey)
	require.NoError(t, err)
	return enc
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return d
}

func TestHTTP_FullFlow(t *testing.T) {
	t.Parallel()

	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/decrypt-seed", `{"encrypted_seed":"`+s.encrypted(t, validSeed)+`"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ok", data(t, body)["status"])

	got, err := s.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, validSeed, got)

	code, body = s.do(t, http.MethodGet, "/generate-2fa", "")
	require.Equal(t, http.StatusOK, code, body)
	gen := data(t, body)
	otpCode, ok := gen["code"].(string)
	require.True(t, ok)
	assert.Regexp(t, `^[0-9]{6}$`, otpCode)
	validFor, ok := gen["valid_for"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, validFor, float64(1))
	assert.LessOrEqual(t, validFor, float64(30))

	code, body = s.do(t, http.MethodPost, "/verify-2fa", `{"code":"`+otpCode+`"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, data(t, body)["valid"])

	secret, err := otp.HexToBase32(validSeed)
	require.NoError(t, err)
	stale, err := otp.NewTOTP("seedotp", 30, 1, 6).GenerateCode(secret, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	if stale != otpCode {
		code, body = s.do(t, http.MethodPost, "/verify-2fa", `{"code":"`+stale+`"}`)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, false, data(t, body)["valid"])
	}
}

func TestHTTP_DecryptSeedErrors(t *testing.T) {
	t.Parallel()

	s := newServer(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "missing field", body: `{}`, status: http.StatusUnprocessableEntity, message: "Validation error"},
		{name: "malformed json", body: `{"encrypted_seed":`, status: http.StatusBadRequest, message: "Invalid request body"},
		{name: "garbage ciphertext", body: `{"encrypted_seed":"bm90LWEtY2lwaGVydGV4dA=="}`, status: http.StatusInternalServerError, message: "Decryption failed"},
		{name: "invalid seed", body: `{"encrypted_seed":"` + s.encrypted(t, "xyz") + `"}`, status: http.StatusInternalServerError, message: "Decryption failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/decrypt-seed", tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	code, body := s.do(t, http.MethodPost, "/decrypt-seed", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	fields, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "encrypted_seed")
}

func TestHTTP_BeforeDecrypt(t *testing.T) {
	t.Parallel()

	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/generate-2fa", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Seed not decrypted yet", body["message"])

	code, body = s.do(t, http.MethodPost, "/verify-2fa", `{"code":"123456"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Seed not decrypted yet", body["message"])
}

func TestHTTP_VerifyMissingCode(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	require.NoError(t, s.store.Write(context.Background(), validSeed))

	code, body := s.do(t, http.MethodPost, "/verify-2fa", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing code", body["message"])

	code, body = s.do(t, http.MethodPost, "/verify-2fa", `{"code":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing code", body["message"])

	for _, payload := range []string{`{"code":"000000x"}`, `{"code":"   "}`} {
		code, body = s.do(t, http.MethodPost, "/verify-2fa", payload)
		assert.Equal(t, http.StatusOK, code, payload)
		assert.Equal(t, false, data(t, body)["valid"], payload)
	}
}

func TestHTTP_ExtraFieldsAccepted(t *testing.T) {
	t.Parallel()

	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/decrypt-seed", `{"encrypted_seed":"`+s.encrypted(t, validSeed)+`","client":"cli"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ok", data(t, body)["status"])

	code, body = s.do(t, http.MethodPost, "/verify-2fa", `{"code":"000000x","client":"cli"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, data(t, body)["valid"])
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newServer(t)

	code, _ := s.do(t, http.MethodGet, "/decrypt-seed", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}
