package messaging

import (
	"context"
	"time"
)

// Noop accepts and discards every message.
type Noop struct{}

// NewNoop returns a Publisher that drops messages.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish validates its arguments and returns success.
func (*Noop) Publish(ctx context.Context, destination string, _ OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	return PublishResult{Destination: destination, Timestamp: time.Now()}, nil
}

// Close is a no-op.
func (*Noop) Close() error {
	return nil
}
