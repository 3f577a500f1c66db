package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/messaging"
	"github.com/shandysiswandi/seedotp/internal/seed/usecase"
	"github.com/shandysiswandi/seedotp/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyOfCorrelationID string = "cID"
	keyOfEventType     string = "event_type"
)

type Messaging struct {
	client  messaging.Publisher
	ins     instrument.Instrumentation
	headers map[string]string
}

// NewMessaging wraps client. headers are added to every message, e.g. the
// deployment environment.
func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, headers map[string]string) *Messaging {
	return &Messaging{client: client, ins: ins, headers: headers}
}

func (m *Messaging) PublishSeedStored(ctx context.Context, msg usecase.SeedStoredEvent) error {
	ctx, span := m.ins.Tracer("seed.outbound.mq").Start(ctx, "PublishSeedStored")
	defer span.End()

	body, err := json.Marshal(event.SeedStoredMessage{
		EventID:     msg.EventID,
		Fingerprint: msg.Fingerprint,
		StoredAt:    msg.StoredAt.UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make(map[string]string, len(m.headers)+2)
	for k, v := range m.headers {
		headers[k] = v
	}
	headers[keyOfEventType] = event.SeedStoredDestination
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		headers[keyOfCorrelationID] = cID
	}

	if _, err := m.client.Publish(ctx, event.SeedStoredDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.EventID, 10)),
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
