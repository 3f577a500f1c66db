package usecase

import (
	"context"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

type VerifyCodeInput struct {
	Code string `json:"code"`
}

type VerifyCodeOutput struct {
	Valid bool
}

// VerifyCode checks the code against the current step and one step either
// side. The code is compared exactly as submitted: a wrong or malformed code,
// including one padded with whitespace, is a negative result, never an error.
// Only an absent code is rejected.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	if in.Code == "" {
		return nil, goerror.NewInvalidFormat(msgMissingCode)
	}

	seed, err := s.readSeed(ctx)
	if err != nil {
		return nil, err
	}

	secret, err := s.secretOf(ctx, seed)
	if err != nil {
		return nil, err
	}

	return &VerifyCodeOutput{Valid: s.totp.Validate(in.Code, secret, s.clock.Now())}, nil
}
