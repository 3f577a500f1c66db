package otp

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidHexSeed is returned when a seed cannot be hex decoded.
var ErrInvalidHexSeed = errors.New("otp: invalid hex seed")

// OTP defines the contract for TOTP operations.
type OTP interface {
	// GenerateCode creates a TOTP code for the given secret and time.
	GenerateCode(secret string, at time.Time) (string, error)
	// Validate checks whether a code is valid at the given time.
	Validate(code, secret string, at time.Time) bool
	// Remaining reports how many whole seconds the code for at stays current.
	Remaining(at time.Time) int
}

// TOTP implements OTP using the Time-based One-Time Password algorithm.
type TOTP struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

// NewTOTP constructs a TOTP instance with sensible defaults.
//
// If digits is not 6 or 8, it falls back to 6 digits. If period is 0, it uses
// the common 30-second period. A skew of 0 becomes 1, so one step on either
// side of the current one is accepted.
func NewTOTP(issuer string, period, skew uint, digits otp.Digits) *TOTP {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	if period == 0 {
		period = 30
	}

	if skew == 0 {
		skew = 1
	}

	return &TOTP{
		issuer: issuer,
		period: period,
		skew:   skew,
		digits: digits,
	}
}

// Issuer returns the issuer label the instance was built with.
func (o *TOTP) Issuer() string {
	return o.issuer
}

// Period returns the step length in seconds.
func (o *TOTP) Period() uint {
	return o.period
}

// GenerateCode creates a TOTP code for the given secret and time.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, o.opts())
}

// Validate checks whether a code is valid at the given time. The code must be
// exactly Digits decimal digits; surrounding whitespace is not tolerated.
// Malformed codes and secrets are reported as invalid rather than as errors.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	if !o.wellFormed(code) {
		return false
	}

	rv, err := totp.ValidateCustom(code, secret, at, o.opts())

	return rv && err == nil
}

// Remaining returns period - (unix mod period), always in [1, period].
func (o *TOTP) Remaining(at time.Time) int {
	p := int64(o.period)
	elapsed := ((at.Unix() % p) + p) % p

	return int(p - elapsed)
}

// wellFormed guards the library, which trims whitespace from passcodes.
func (o *TOTP) wellFormed(code string) bool {
	if len(code) != o.digits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (o *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      o.skew,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// HexToBase32 converts a hex seed to the padded, upper-case base32 secret used
// for HMAC keying.
func HexToBase32(hexSeed string) (string, error) {
	raw, err := hex.DecodeString(hexSeed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidHexSeed, err)
	}

	return base32.StdEncoding.EncodeToString(raw), nil
}
