package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
	"github.com/shandysiswandi/seedotp/internal/pkg/keystore"
	"github.com/shandysiswandi/seedotp/internal/pkg/seedcipher"
)

type DecryptSeedInput struct {
	EncryptedSeed string `json:"encrypted_seed" validate:"required"`
}

// DecryptSeed decrypts and validates the submitted seed and replaces the stored
// one. Every failure after input validation reaches the caller as the same
// opaque error; the cause is only logged.
func (s *Usecase) DecryptSeed(ctx context.Context, in DecryptSeedInput) error {
	ctx, span := s.startSpan(ctx, "DecryptSeed")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	key, err := keystore.LoadPrivateKey(s.privateKeyPath)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load private key", "error", err)
		return goerror.NewServerMessage(err, msgDecryptionFailed)
	}

	seed, err := seedcipher.Decrypt(in.EncryptedSeed, key)
	if err != nil {
		var derr *seedcipher.DecryptionError
		if errors.As(err, &derr) {
			slog.ErrorContext(ctx, "failed to decrypt seed", "error", err, "cause", derr.Detail())
		} else {
			slog.ErrorContext(ctx, "decrypted seed failed validation", "error", err)
		}
		return goerror.NewServerMessage(err, msgDecryptionFailed)
	}

	if err := s.repoStore.Write(ctx, seed); err != nil {
		slog.ErrorContext(ctx, "failed to repo write seed", "error", err)
		return goerror.NewServerMessage(err, msgDecryptionFailed)
	}

	s.publishSeedStored(ctx, seed)

	return nil
}

func (s *Usecase) publishSeedStored(ctx context.Context, seed string) {
	if s.repoMessaging == nil || s.goroutine == nil {
		return
	}

	ev := SeedStoredEvent{
		EventID:     s.uid.Generate(),
		Fingerprint: s.hmac.Hash(seed),
		StoredAt:    s.clock.Now(),
	}

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishSeedStored(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish seed stored event", "event_id", ev.EventID, "error", err)
			return err
		}
		return nil
	})
}
