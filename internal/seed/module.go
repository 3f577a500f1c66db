// Package seed wires the seed decryption and 2FA code endpoints.
package seed

import (
	"github.com/shandysiswandi/seedotp/internal/pkg/clock"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/seedotp/internal/pkg/hash"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/messaging"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/router"
	"github.com/shandysiswandi/seedotp/internal/pkg/uid"
	"github.com/shandysiswandi/seedotp/internal/pkg/validator"
	"github.com/shandysiswandi/seedotp/internal/seed/inbound"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/mq"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
)

type Dependency struct {
	Store      store.Store                `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       *hash.HMACSHA256           `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Totp       otp.OTP                    `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument, dep.Config.GetMap("messaging.headers"))

	uc := usecase.New(usecase.Dependency{
		RepoStore:      dep.Store,
		RepoMessaging:  repoMsg,
		Validator:      dep.Validator,
		PrivateKeyPath: dep.Config.GetString("keys.private_key_path"),
		HMAC:           dep.HMAC,
		UID:            dep.UID,
		Totp:           dep.Totp,
		Clock:          dep.Clock,
		Instrument:     dep.Instrument,
		Goroutine:      dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
