package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig controls the backoff of a Retrying publisher.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64
	// Base is the first Fibonacci backoff step. Defaults to 200ms.
	Base time.Duration
	// Cap bounds any single wait. Defaults to 5s.
	Cap time.Duration
}

// Retrying retries transient publish failures with capped Fibonacci backoff.
// Argument errors and a closed publisher are not retried.
type Retrying struct {
	next Publisher
	cfg  RetryConfig
}

// NewRetrying wraps next.
func NewRetrying(next Publisher, cfg RetryConfig) *Retrying {
	if cfg.Base <= 0 {
		cfg.Base = 200 * time.Millisecond
	}
	if cfg.Cap <= 0 {
		cfg.Cap = 5 * time.Second
	}

	return &Retrying{next: next, cfg: cfg}
}

// Publish implements Publisher.
func (r *Retrying) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	b := retry.NewFibonacci(r.cfg.Base)
	b = retry.WithCappedDuration(r.cfg.Cap, b)
	b = retry.WithMaxRetries(r.cfg.MaxRetries, b)

	var (
		res     PublishResult
		attempt int
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++

		var err error
		res, err = r.next.Publish(ctx, destination, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDestinationRequired) || errors.Is(err, ErrClosed) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		slog.WarnContext(ctx, "publish failed, retrying", "destination", destination, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})

	return res, err
}

// Close closes the wrapped publisher.
func (r *Retrying) Close() error {
	return r.next.Close()
}
