// Package bus provides event bus implementations for Propvest.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/propvest/internal/domain"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = eris.New("bus is closed")

// New creates an event bus from configuration: "channel" for in-process
// delivery or "nats" for delivery across instances.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, eris.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// newMessage wraps a payload in an envelope. The active trace id, if any,
// travels in the metadata so subscribers can correlate their logs.
func newMessage(ctx context.Context, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.Metadata[MetadataTraceID] = sc.TraceID().String()
	}
	return msg
}

// MetadataTraceID is the metadata key carrying the publisher's trace id.
const MetadataTraceID = "trace_id"
