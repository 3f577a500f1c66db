package messaging_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	failures int32
	calls    atomic.Int32
	err      error
	closed   bool
}

func (f *flakyPublisher) Publish(_ context.Context, destination string, _ messaging.OutgoingMessage) (messaging.PublishResult, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return messaging.PublishResult{}, f.err
	}
	return messaging.PublishResult{Destination: destination, MessageID: "ok"}, nil
}

func (f *flakyPublisher) Close() error {
	f.closed = true
	return nil
}

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	pub, err := messaging.NewFromDriver(ctx, "", messaging.FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &messaging.Noop{}, pub)

	pub, err = messaging.NewFromDriver(ctx, " NOOP ", messaging.FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &messaging.Noop{}, pub)

	_, err = messaging.NewFromDriver(ctx, "carrier-pigeon", messaging.FactoryOptions{})
	require.ErrorIs(t, err, messaging.ErrUnknownDriver)

	_, err = messaging.NewFromDriver(ctx, messaging.DriverNATS, messaging.FactoryOptions{})
	require.ErrorIs(t, err, messaging.ErrNATSURLRequired)

	_, err = messaging.NewFromDriver(ctx, messaging.DriverNSQ, messaging.FactoryOptions{})
	require.ErrorIs(t, err, messaging.ErrNSQProducerAddrRequired)

	_, err = messaging.NewFromDriver(ctx, messaging.DriverKafka, messaging.FactoryOptions{})
	require.ErrorIs(t, err, messaging.ErrKafkaBrokersRequired)

	_, err = messaging.NewFromDriver(ctx, messaging.DriverGooglePubSub, messaging.FactoryOptions{})
	require.ErrorIs(t, err, messaging.ErrPubSubProjectIDRequired)

	pub, err = messaging.NewFromDriver(ctx, messaging.DriverKafka, messaging.FactoryOptions{
		Kafka: messaging.KafkaConfig{Brokers: []string{"localhost:9092"}},
		Retry: messaging.RetryConfig{MaxRetries: 2},
	})
	require.NoError(t, err)
	assert.IsType(t, &messaging.Retrying{}, pub)
	require.NoError(t, pub.Close())
}

func TestNoop(t *testing.T) {
	t.Parallel()

	pub := messaging.NewNoop()

	res, err := pub.Publish(context.Background(), "seed.stored", messaging.OutgoingMessage{Body: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, "seed.stored", res.Destination)

	_, err = pub.Publish(context.Background(), "", messaging.OutgoingMessage{})
	require.ErrorIs(t, err, messaging.ErrDestinationRequired)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pub.Publish(ctx, "seed.stored", messaging.OutgoingMessage{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetrying(t *testing.T) {
	t.Parallel()

	cfg := messaging.RetryConfig{MaxRetries: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}

	t.Run("recovers from transient failures", func(t *testing.T) {
		t.Parallel()

		next := &flakyPublisher{failures: 2, err: errors.New("broker unavailable")}
		res, err := messaging.NewRetrying(next, cfg).Publish(context.Background(), "topic", messaging.OutgoingMessage{})
		require.NoError(t, err)
		assert.Equal(t, "ok", res.MessageID)
		assert.Equal(t, int32(3), next.calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("broker unavailable")
		next := &flakyPublisher{failures: 100, err: boom}
		_, err := messaging.NewRetrying(next, cfg).Publish(context.Background(), "topic", messaging.OutgoingMessage{})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, int32(4), next.calls.Load())
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		t.Parallel()

		next := &flakyPublisher{failures: 100, err: messaging.ErrClosed}
		_, err := messaging.NewRetrying(next, cfg).Publish(context.Background(), "topic", messaging.OutgoingMessage{})
		require.ErrorIs(t, err, messaging.ErrClosed)
		assert.Equal(t, int32(1), next.calls.Load())
	})

	t.Run("close delegates", func(t *testing.T) {
		t.Parallel()

		next := &flakyPublisher{}
		require.NoError(t, messaging.NewRetrying(next, messaging.RetryConfig{}).Close())
		assert.True(t, next.closed)
	})
}

func TestKafka_PublishAfterClose(t *testing.T) {
	t.Parallel()

	k, err := messaging.NewKafka(messaging.KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	require.NoError(t, k.Close())
	require.NoError(t, k.Close())

	_, err = k.Publish(context.Background(), "topic", messaging.OutgoingMessage{})
	require.ErrorIs(t, err, messaging.ErrClosed)
}
