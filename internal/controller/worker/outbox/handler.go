package outbox

import (
	"context"

	"github.com/mgrimsby/property-ops/internal/entity"
)

// Handler processes one event type. Handle must treat the event payload as
// read-only. OnExhausted runs once, after the processor has moved the event
// to its terminal failed state.
type Handler interface {
	EventType() string
	Handle(ctx context.Context, event *entity.OutboxEvent) error
	OnExhausted(ctx context.Context, event *entity.OutboxEvent, lastError string)
}
