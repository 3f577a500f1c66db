package app_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/seedotp/internal/app"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/hash"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/seedcipher"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSeed = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"

const sealingKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

func loadConfig(t *testing.T, yaml string) config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := app.LoadConfig(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t, "app:\n  name: seedotp\n")

	assert.Equal(t, app.DriverFile, cfg.GetString("seed.store.driver"))
	assert.Equal(t, store.DefaultFilePath, cfg.GetString("seed.file.path"))
	assert.Equal(t, []string{"encrypted_seed", "code", "seed"}, cfg.GetArray("instrument.log_mask_fields"))
}

func TestNewTOTP_IgnoresWindowOverrides(t *testing.T) {
	t.Parallel()

	// "12345678901234567890" at unix 1111111111, RFC 6238 code 050471.
	secret, err := otp.HexToBase32("3132333435363738393031323334353637383930")
	require.NoError(t, err)
	now := time.Unix(1111111111, 0)

	cfg := loadConfig(t, "otp:\n  issuer: test\n  period: 60\n  skew: 2\n")
	engine := app.NewTOTP(cfg)

	assert.Equal(t, uint(app.CodePeriodSeconds), engine.Period())
	assert.Equal(t, 29, engine.Remaining(now))

	code, err := engine.GenerateCode(secret, now)
	require.NoError(t, err)
	assert.Equal(t, "050471", code)

	for _, offset := range []time.Duration{-60 * time.Second, 60 * time.Second, -120 * time.Second, 120 * time.Second} {
		far, err := engine.GenerateCode(secret, now.Add(offset))
		require.NoError(t, err)
		assert.False(t, engine.Validate(far, secret, now), "offset=%s", offset)
	}
	for _, offset := range []time.Duration{-30 * time.Second, 30 * time.Second} {
		near, err := engine.GenerateCode(secret, now.Add(offset))
		require.NoError(t, err)
		assert.True(t, engine.Validate(near, secret, now), "offset=%s", offset)
	}
}

func TestNewFingerprinter(t *testing.T) {
	t.Parallel()

	t.Run("configured secret", func(t *testing.T) {
		t.Parallel()

		fp, err := app.NewFingerprinter(loadConfig(t, "hash:\n  hmac:\n    secret: s3cret\nmessaging:\n  driver: nats\n"))
		require.NoError(t, err)
		assert.Equal(t, hash.NewHMACSHA256("s3cret").Hash(validSeed), fp.Hash(validSeed))
	})

	t.Run("missing secret with publishing driver", func(t *testing.T) {
		t.Parallel()

		for _, driver := range []string{"nsq", "kafka", "nats", " NATS ", "google_pubsub"} {
			cfg := loadConfig(t, fmt.Sprintf("messaging:\n  driver: %q\n", driver))
			fp, err := app.NewFingerprinter(cfg)
			assert.ErrorIs(t, err, app.ErrHMACSecretRequired, "driver=%q", driver)
			assert.Nil(t, fp)
		}
	})

	t.Run("missing secret with noop driver", func(t *testing.T) {
		t.Parallel()

		cfg := loadConfig(t, "app:\n  name: seedotp\n")
		first, err := app.NewFingerprinter(cfg)
		require.NoError(t, err)
		second, err := app.NewFingerprinter(cfg)
		require.NoError(t, err)

		assert.NotEqual(t, hash.NewHMACSHA256("").Hash(validSeed), first.Hash(validSeed))
		assert.NotEqual(t, first.Hash(validSeed), second.Hash(validSeed))
		assert.True(t, first.Verify(first.Hash(validSeed), validSeed))
	})
}

func TestOpenSeedStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "memory", yaml: "seed:\n  store:\n    driver: memory\n"},
		{name: "file", yaml: fmt.Sprintf("seed:\n  store:\n    driver: file\n  file:\n    path: %s\n", filepath.Join(dir, "plain", "seed.txt"))},
		{name: "object on memory storage", yaml: "seed:\n  store:\n    driver: object\n  object:\n    driver: memory\n    bucket: seeds\n"},
		{name: "sealed file", yaml: fmt.Sprintf("seed:\n  store:\n    driver: FILE\n    sealing_key: %s\n  file:\n    path: %s\n", sealingKey, filepath.Join(dir, "sealed", "seed.txt"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := app.OpenSeedStore(ctx, loadConfig(t, tt.yaml), instrument.NewNoop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })

			require.NoError(t, st.Write(ctx, validSeed))
			got, err := st.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, validSeed, got)
		})
	}

	raw, err := os.ReadFile(filepath.Join(dir, "sealed", "seed.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), validSeed)
}

func TestOpenSeedStore_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := app.OpenSeedStore(ctx, loadConfig(t, "seed:\n  store:\n    driver: floppy\n"), instrument.NewNoop())
	require.ErrorIs(t, err, app.ErrUnknownStoreDriver)

	_, err = app.OpenSeedStore(ctx, loadConfig(t, "seed:\n  store:\n    driver: object\n  object:\n    driver: memory\n"), instrument.NewNoop())
	require.ErrorIs(t, err, app.ErrBucketRequired)

	_, err = app.OpenSeedStore(ctx, loadConfig(t, "seed:\n  store:\n    driver: memory\n    sealing_key: c2hvcnQ=\n"), instrument.NewNoop())
	require.Error(t, err)

	_, err = app.OpenSeedStore(ctx, loadConfig(t, "seed:\n  store:\n    driver: redis\n  redis:\n    url: \"::not a url\"\n"), instrument.NewNoop())
	require.Error(t, err)
}

func TestApp_Serve(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "student_private.pem")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
app:
  tz: UTC
keys:
  private_key_path: %s
hash:
  hmac:
    secret: test-secret
uid:
  snowflake_node: 7
seed:
  store:
    driver: file
  file:
    path: %s
`, keyPath, filepath.Join(dir, "data", "seed.txt"))), 0o600))

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("TZ", os.Getenv("TZ"))

	application := app.New()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	errCh := application.Serve(l)
	base := "http://" + l.Addr().String()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Stop(ctx)
		assert.ErrorIs(t, <-errCh, http.ErrServerClosed)
	})

	client := &http.Client{Timeout: 5 * time.Second}
	call := func(method, path, body string) (int, map[string]any) {
		req, err := http.NewRequest(method, base+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
		return resp.StatusCode, out
	}

	code, _ := call(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)

	code, body := call(http.MethodGet, "/generate-2fa", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Seed not decrypted yet", body["message"])

	enc, err := seedcipher.Encrypt(validSeed, &key.PublicKey)
	require.NoError(t, err)
	code, _ = call(http.MethodPost, "/decrypt-seed", `{"encrypted_seed":"`+enc+`"}`)
	require.Equal(t, http.StatusOK, code)

	raw, err := os.ReadFile(filepath.Join(dir, "data", "seed.txt"))
	require.NoError(t, err)
	assert.Equal(t, validSeed, strings.TrimSpace(string(raw)))

	code, body = call(http.MethodGet, "/generate-2fa", "")
	require.Equal(t, http.StatusOK, code)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	otpCode, ok := data["code"].(string)
	require.True(t, ok)

	code, body = call(http.MethodPost, "/verify-2fa", `{"code":"`+otpCode+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"valid": true}, body["data"])
}
