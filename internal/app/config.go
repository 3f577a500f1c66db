package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	libOTP "github.com/pquerna/otp"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/hash"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/messaging"
	"github.com/shandysiswandi/seedotp/internal/pkg/otp"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
)

var defaults = map[string]any{
	"app.name":                                    "seedotp",
	"app.tz":                                      "UTC",
	"app.server.max_goroutine":                    0,
	"app.server.task_timeout_seconds":             10,
	"app.server.http.address":                     ":8080",
	"app.server.http.read_timeout_seconds":        15,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       15,
	"app.server.http.idle_timeout_seconds":        60,
	"instrument.enabled":                          false,
	"instrument.service_name":                     "seedotp",
	"instrument.log_mask_fields":                  "encrypted_seed,code,seed",
	"keys.private_key_path":                       "/app/student_private.pem",
	"otp.issuer":                                  "seedotp",
	"uid.snowflake_node":                          -1,
	"seed.store.driver":                           DriverFile,
	"seed.file.path":                              store.DefaultFilePath,
	"seed.redis.key":                              store.DefaultRedisKey,
	"seed.object.key":                             store.DefaultObjectKey,
	"messaging.driver":                            "noop",
}

// ConfigPath returns CONFIG_PATH, falling back to the container path or, with
// LOCAL=true, to the repository copy.
func ConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

// LoadConfig reads the config file at path with built-in defaults and
// SEEDOTP_* environment overrides.
func LoadConfig(path string) (config.Config, error) {
	return config.NewViper(path, config.WithDefaults(defaults), config.WithEnv())
}

// NewInstrument configures logging and, when enabled, the OTLP exporters.
// The trace sample rate is configured in percent.
func NewInstrument(ctx context.Context, cfg config.Config) (instrument.Instrumentation, error) {
	return instrument.New(ctx, &instrument.Config{
		Enabled:          cfg.GetBool("instrument.enabled"),
		ServiceName:      cfg.GetString("instrument.service_name"),
		ServiceVersion:   cfg.GetString("instrument.service_version"),
		Environment:      cfg.GetString("instrument.env"),
		OTLPEndpoint:     cfg.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       cfg.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: float64(cfg.GetUint("instrument.trace_sample_percent")) / 100,
		MetricsInterval:  cfg.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       cfg.GetArray("instrument.log_mask_fields"),
	})
}

// Code parameters shared with every client that verifies against this
// service. They are not configurable.
const (
	CodePeriodSeconds = 30
	CodeSkewSteps     = 1
)

// NewTOTP builds the code engine. Only the issuer label comes from config;
// the 30 second step, the one-step window and six digits are fixed.
func NewTOTP(cfg config.Config) *otp.TOTP {
	return otp.NewTOTP(cfg.GetString("otp.issuer"), CodePeriodSeconds, CodeSkewSteps, libOTP.DigitsSix)
}

// ErrHMACSecretRequired is returned when seed fingerprints would leave the
// process without hash.hmac.secret being set.
var ErrHMACSecretRequired = errors.New("app: hash.hmac.secret is required when messaging is enabled")

// NewFingerprinter builds the seed fingerprint hasher. Without a configured
// secret it refuses any publishing messaging driver and otherwise keys the
// hasher with random bytes that live only as long as the process.
func NewFingerprinter(cfg config.Config) (*hash.HMACSHA256, error) {
	if secret := cfg.GetString("hash.hmac.secret"); secret != "" {
		return hash.NewHMACSHA256(secret), nil
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.GetString("messaging.driver")))
	if driver != "" && driver != messaging.DriverNoop {
		return nil, fmt.Errorf("%w: driver %q", ErrHMACSecretRequired, driver)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("app: generate hmac secret: %w", err)
	}

	return hash.NewHMACSHA256(hex.EncodeToString(key)), nil
}
