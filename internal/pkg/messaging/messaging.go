package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrDestinationRequired is returned when Publish is called without a topic/subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("messaging: publisher is closed")
)

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	// Publish sends msg to destination and blocks until the broker accepts it
	// or ctx is done.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key []byte
	// Headers are carried as native headers (NATS, Kafka) or string
	// attributes (Pub/Sub). NSQ has no header support and drops them.
	Headers map[string]string
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID, when the broker returns one.
	MessageID string
	// Destination is the topic or subject the message went to.
	Destination string
	// Timestamp is when the broker accepted the message.
	Timestamp time.Time
}

func checkPublish(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}
