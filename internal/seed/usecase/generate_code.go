package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

// GenerateCodeOutput carries the code together with the instant it was
// computed for, so callers never need a second clock reading.
type GenerateCodeOutput struct {
	Code     string
	ValidFor int
	At       time.Time
}

func (s *Usecase) GenerateCode(ctx context.Context) (*GenerateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateCode")
	defer span.End()

	seed, err := s.readSeed(ctx)
	if err != nil {
		return nil, err
	}

	secret, err := s.secretOf(ctx, seed)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	code, err := s.totp.GenerateCode(secret, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &GenerateCodeOutput{Code: code, ValidFor: s.totp.Remaining(now), At: now}, nil
}
