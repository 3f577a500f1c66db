package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/clock"
	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
	"github.com/shandysiswandi/seedotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/uid"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgDecryptionFailed = "Decryption failed"
	msgSeedNotReady     = "Seed not decrypted yet"
	msgMissingCode      = "Missing code"
)

type SeedStoredEvent struct {
	EventID     int64
	Fingerprint string
	StoredAt    time.Time
}

type repoMessaging interface {
	PublishSeedStored(ctx context.Context, msg SeedStoredEvent) error
}

type repoStore interface {
	Write(ctx context.Context, seed string) error
	Read(ctx context.Context) (string, error)
}

type fingerprinter interface {
	Hash(str string) string
}

type Usecase struct {
	repoStore      repoStore
	repoMessaging  repoMessaging
	validator      validator.Validator
	privateKeyPath string
	hmac           fingerprinter
	uid            uid.NumberID
	totp           otp.OTP
	clock          clock.Clocker
	ins            instrument.Instrumentation
	goroutine      *goroutine.Manager
}

type Dependency struct {
	RepoStore     repoStore
	RepoMessaging repoMessaging
	Validator     validator.Validator
	// PrivateKeyPath is read on every DecryptSeed call; the key is never cached.
	PrivateKeyPath string
	HMAC           fingerprinter
	UID            uid.NumberID
	Totp           otp.OTP
	Clock          clock.Clocker
	Instrument     instrument.Instrumentation
	Goroutine      *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoStore:      dep.RepoStore,
		repoMessaging:  dep.RepoMessaging,
		validator:      dep.Validator,
		privateKeyPath: dep.PrivateKeyPath,
		hmac:           dep.HMAC,
		uid:            dep.UID,
		totp:           dep.Totp,
		clock:          dep.Clock,
		ins:            dep.Instrument,
		goroutine:      dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("seed.usecase").Start(ctx, name)
}

// readSeed maps store failures to client errors. Absence is a distinct
// precondition failure; anything else is a generic server error.
func (s *Usecase) readSeed(ctx context.Context) (string, error) {
	seed, err := s.repoStore.Read(ctx)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "seed requested before any successful decryption")
		return "", goerror.NewNotReady(msgSeedNotReady)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo read seed", "error", err)
		return "", goerror.NewServer(err)
	}

	return seed, nil
}

// secretOf converts the stored hex seed to the TOTP secret. A stored value that
// is not hex means the slot was corrupted outside this service.
func (s *Usecase) secretOf(ctx context.Context, seed string) (string, error) {
	secret, err := otp.HexToBase32(seed)
	if err != nil {
		slog.ErrorContext(ctx, "stored seed is not valid hex", "error", err)
		return "", goerror.NewServer(err)
	}
	return secret, nil
}
