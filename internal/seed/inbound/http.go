package inbound

import (
	"context"

	"github.com/shandysiswandi/seedotp/internal/pkg/router"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
)

type uc interface {
	DecryptSeed(ctx context.Context, in usecase.DecryptSeedInput) error
	GenerateCode(ctx context.Context) (*usecase.GenerateCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/decrypt-seed", end.DecryptSeed)
	r.GET("/generate-2fa", end.GenerateCode)
	r.POST("/verify-2fa", end.VerifyCode)
}
