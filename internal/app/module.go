package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/seedotp/internal/seed"
)

func (a *App) initModules() {
	if err := seed.New(seed.Dependency{
		Store:      a.store,
		Messaging:  a.messaging,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		HMAC:       a.hmac,
		Clock:      a.clock,
		Totp:       a.totp,
		Validator:  a.validator,
	}); err != nil {
		slog.Error("failed to init module seed", "error", err)
		os.Exit(1)
	}
}
