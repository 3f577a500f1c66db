package usecase_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
	"github.com/shandysiswandi/seedotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/seedotp/internal/pkg/hash"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/seedcipher"
	"github.com/shandysiswandi/seedotp/internal/pkg/uid"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSeed = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"

// rfcSeed is the ASCII secret "12345678901234567890" from RFC 6238 appendix B.
const rfcSeed = "3132333435363738393031323334353637383930"

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type capturedEvents struct {
	mu     sync.Mutex
	events []usecase.SeedStoredEvent
	err    error
}

func (c *capturedEvents) PublishSeedStored(_ context.Context, msg usecase.SeedStoredEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, msg)
	return c.err
}

type failingStore struct{}

func (failingStore) Write(context.Context, string) error { return store.ErrStorage }

func (failingStore) Read(context.Context) (string, error) { return "", store.ErrStorage }

type fixture struct {
	uc        *usecase.Usecase
	store     *store.Memory
	events    *capturedEvents
	clock     *fakeClock
	goroutine *goroutine.Manager
	key       *rsa.PrivateKey
}

func writeKey(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "student_private.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	return path
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	f := &fixture{
		store:     store.NewMemory(),
		events:    &capturedEvents{},
		clock:     &fakeClock{now: time.Unix(1_700_000_000, 0)},
		goroutine: goroutine.NewManager(4),
		key:       key,
	}

	f.uc = usecase.New(usecase.Dependency{
		RepoStore:      f.store,
		RepoMessaging:  f.events,
		Validator:      v,
		PrivateKeyPath: writeKey(t, key),
		HMAC:           hash.NewHMACSHA256("fingerprint-secret"),
		UID:            sf,
		Totp:           otp.NewTOTP("seedotp", 30, 1, 6),
		Clock:          f.clock,
		Instrument:     instrument.NewNoop(),
		Goroutine:      f.goroutine,
	})

	return f
}

func (f *fixture) encrypt(t *testing.T, plaintext string) string {
	t.Helper()

	enc, err := seedcipher.Encrypt(plaintext, &f.key.PublicKey)
	require.NoError(t, err)
	return enc
}

func requireGoError(t *testing.T, err error, code goerror.Code, msg string) {
	t.Helper()

	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "expected *goerror.Error, got %T", err)
	assert.Equal(t, code, gerr.Code())
	assert.Equal(t, msg, gerr.Msg())
}

func TestDecryptSeed_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.DecryptSeed(ctx, usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)}))

	got, err := f.store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, validSeed, got)

	require.NoError(t, f.goroutine.Wait())
	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.NotZero(t, ev.EventID)
	assert.Equal(t, hash.NewHMACSHA256("fingerprint-secret").Hash(validSeed), ev.Fingerprint)
	assert.NotContains(t, ev.Fingerprint, validSeed)
	assert.True(t, f.clock.Now().Equal(ev.StoredAt))
}

func TestDecryptSeed_Overwrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	other := "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

	require.NoError(t, f.uc.DecryptSeed(ctx, usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)}))
	require.NoError(t, f.uc.DecryptSeed(ctx, usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, other)}))

	got, err := f.store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestDecryptSeed_MissingInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.uc.DecryptSeed(context.Background(), usecase.DecryptSeedInput{})
	requireGoError(t, err, goerror.CodeInvalidInput, "Validation error")

	var verr validator.V10ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Values(), "encrypted_seed")
}

func TestDecryptSeed_FailuresAreOpaque(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forOther, err := seedcipher.Encrypt(validSeed, &other.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "%%%"},
		{name: "wrong key", input: forOther},
		{name: "short seed", input: f.encrypt(t, validSeed[:10])},
		{name: "upper case seed", input: f.encrypt(t, "A1B2C3D4E5F60718293A4B5C6D7E8F90A1B2C3D4E5F60718293A4B5C6D7E8F90")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.uc.DecryptSeed(context.Background(), usecase.DecryptSeedInput{EncryptedSeed: tt.input})
			requireGoError(t, err, goerror.CodeInternal, "Decryption failed")
		})
	}

	_, err = f.store.Read(context.Background())
	require.ErrorIs(t, err, goerror.ErrNotFound, "failed decryptions must not touch the store")
	require.NoError(t, f.goroutine.Wait())
	assert.Empty(t, f.events.events)
}

func TestDecryptSeed_KeyReadPerCall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	uc := usecase.New(usecase.Dependency{
		RepoStore:      f.store,
		Validator:      v,
		PrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem"),
		Totp:           otp.NewTOTP("seedotp", 30, 1, 6),
		Clock:          f.clock,
		Instrument:     instrument.NewNoop(),
	})

	err = uc.DecryptSeed(context.Background(), usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)})
	requireGoError(t, err, goerror.CodeInternal, "Decryption failed")
}

func TestDecryptSeed_StoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	uc := usecase.New(usecase.Dependency{
		RepoStore:      failingStore{},
		Validator:      v,
		PrivateKeyPath: writeKey(t, f.key),
		Totp:           otp.NewTOTP("seedotp", 30, 1, 6),
		Clock:          f.clock,
		Instrument:     instrument.NewNoop(),
	})

	err = uc.DecryptSeed(context.Background(), usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)})
	requireGoError(t, err, goerror.CodeInternal, "Decryption failed")

	_, err = uc.GenerateCode(context.Background())
	requireGoError(t, err, goerror.CodeInternal, "Internal server error")
}

func TestDecryptSeed_PublishFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.events.err = errors.New("broker down")

	require.NoError(t, f.uc.DecryptSeed(context.Background(), usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)}))
	require.Error(t, f.goroutine.Wait())
}

func TestGenerateCode_NoSeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.uc.GenerateCode(context.Background())
	requireGoError(t, err, goerror.CodeNotReady, "Seed not decrypted yet")

	_, err = f.uc.VerifyCode(context.Background(), usecase.VerifyCodeInput{Code: "123456"})
	requireGoError(t, err, goerror.CodeNotReady, "Seed not decrypted yet")
}

func TestGenerateCode_KnownVectors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.Write(context.Background(), rfcSeed))

	tests := []struct {
		unix     int64
		code     string
		validFor int
	}{
		{unix: 59, code: "287082", validFor: 1},
		{unix: 1111111109, code: "081804", validFor: 1},
		{unix: 1111111111, code: "050471", validFor: 29},
		{unix: 1234567890, code: "005924", validFor: 30},
		{unix: 2000000000, code: "279037", validFor: 10},
	}

	for _, tt := range tests {
		f.clock.Set(time.Unix(tt.unix, 0))

		out, err := f.uc.GenerateCode(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.code, out.Code, "unix %d", tt.unix)
		assert.Equal(t, tt.validFor, out.ValidFor, "unix %d", tt.unix)
		assert.True(t, time.Unix(tt.unix, 0).Equal(out.At), "unix %d", tt.unix)
	}
}

func TestGenerateCode_CorruptedSeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.Write(context.Background(), "not-hex"))

	_, err := f.uc.GenerateCode(context.Background())
	requireGoError(t, err, goerror.CodeInternal, "Internal server error")
}

func TestVerifyCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, rfcSeed))

	// step n = 1111111111/30; codes from RFC 6238 and the neighbouring steps
	f.clock.Set(time.Unix(1111111111, 0))

	codeAt := func(unix int64) string {
		secret, err := otp.HexToBase32(rfcSeed)
		require.NoError(t, err)
		code, err := otp.NewTOTP("seedotp", 30, 1, 6).GenerateCode(secret, time.Unix(unix, 0))
		require.NoError(t, err)
		return code
	}

	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{name: "current step", code: "050471", valid: true},
		{name: "previous step", code: codeAt(1111111111 - 30), valid: true},
		{name: "next step", code: codeAt(1111111111 + 30), valid: true},
		{name: "two steps back", code: codeAt(1111111111 - 60), valid: false},
		{name: "two steps ahead", code: codeAt(1111111111 + 60), valid: false},
		{name: "non numeric", code: "abcdef", valid: false},
		{name: "too short", code: "12345", valid: false},
		{name: "too long", code: "0504710", valid: false},
		{name: "leading space", code: " 050471", valid: false},
		{name: "trailing newline", code: "050471\n", valid: false},
		{name: "surrounded by whitespace", code: "\t050471 ", valid: false},
		{name: "whitespace only", code: "   ", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.uc.VerifyCode(ctx, usecase.VerifyCodeInput{Code: tt.code})
			require.NoError(t, err)
			assert.Equal(t, tt.valid, out.Valid)
		})
	}
}

func TestVerifyCode_MissingCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.uc.VerifyCode(context.Background(), usecase.VerifyCodeInput{})
	requireGoError(t, err, goerror.CodeInvalidFormat, "Missing code")
}

func TestScenario_DecryptThenGenerateAndVerify(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.clock.Set(time.Now())

	require.NoError(t, f.uc.DecryptSeed(ctx, usecase.DecryptSeedInput{EncryptedSeed: f.encrypt(t, validSeed)}))

	out, err := f.uc.GenerateCode(ctx)
	require.NoError(t, err)
	assert.Regexp(t, sixDigits, out.Code)
	assert.GreaterOrEqual(t, out.ValidFor, 1)
	assert.LessOrEqual(t, out.ValidFor, 30)

	ok, err := f.uc.VerifyCode(ctx, usecase.VerifyCodeInput{Code: out.Code})
	require.NoError(t, err)
	assert.True(t, ok.Valid)

	if out.Code != "000000" {
		ok, err = f.uc.VerifyCode(ctx, usecase.VerifyCodeInput{Code: "000000"})
		require.NoError(t, err)
		assert.False(t, ok.Valid)
	}
}
