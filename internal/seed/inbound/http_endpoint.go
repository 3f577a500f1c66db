package inbound

import (
	"github.com/shandysiswandi/seedotp/internal/pkg/router"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
)

// HTTPEndpoint exposes the seed and 2FA code handlers.
type HTTPEndpoint struct {
	uc uc
}

// DecryptSeed accepts an RSA-OAEP encrypted seed and stores it.
func (h *HTTPEndpoint) DecryptSeed(r *router.Request) (any, error) {
	var req DecryptSeedRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.DecryptSeed(r.Context(), usecase.DecryptSeedInput{
		EncryptedSeed: req.EncryptedSeed,
	})
	if err != nil {
		return nil, err
	}

	return DecryptSeedResponse{Status: "ok"}, nil
}

// GenerateCode returns the current code and how many seconds it stays valid.
func (h *HTTPEndpoint) GenerateCode(r *router.Request) (any, error) {
	resp, err := h.uc.GenerateCode(r.Context())
	if err != nil {
		return nil, err
	}

	return GenerateCodeResponse{
		Code:     resp.Code,
		ValidFor: resp.ValidFor,
	}, nil
}

// VerifyCode checks a submitted code against the stored seed. A wrong code is
// a successful response with valid=false.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Code: req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{Valid: resp.Valid}, nil
}
