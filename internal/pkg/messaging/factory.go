package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverNoop discards every message.
	DriverNoop = "noop"
	// DriverNSQ selects the NSQ backend.
	DriverNSQ = "nsq"
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverKafka selects the Kafka backend.
	DriverKafka = "kafka"
	// DriverGooglePubSub selects the Google Pub/Sub backend.
	DriverGooglePubSub = "google-pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	// NSQ provides configuration for the NSQ driver.
	NSQ NSQConfig
	// Kafka provides configuration for the Kafka driver.
	Kafka KafkaConfig
	// NATS provides configuration for the NATS driver.
	NATS NATSConfig
	// PubSub provides configuration for the Google Pub/Sub driver.
	PubSub PubSubConfig
	// Retry wraps the driver in a Retrying publisher when MaxRetries > 0.
	Retry RetryConfig
}

// NewFromDriver constructs a Publisher by driver name. An empty driver selects noop.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Publisher, error) {
	var (
		pub Publisher
		err error
	)

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNoop:
		return NewNoop(), nil
	case DriverNSQ:
		pub, err = NewNSQ(opts.NSQ)
	case DriverKafka:
		pub, err = NewKafka(opts.Kafka)
	case DriverNATS:
		pub, err = NewNATS(opts.NATS)
	case DriverGooglePubSub:
		pub, err = NewPubSub(ctx, opts.PubSub)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Retry.MaxRetries > 0 {
		return NewRetrying(pub, opts.Retry), nil
	}

	return pub, nil
}
