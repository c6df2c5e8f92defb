package outbox

import (
	"context"
	"fmt"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/infrastructure"
)

// PublishHandler relays invoice announcements to the message broker.
type PublishHandler struct {
	publisher infrastructure.EventsPublisher
}

func NewPublishHandler(publisher infrastructure.EventsPublisher) *PublishHandler {
	return &PublishHandler{publisher: publisher}
}

func (h *PublishHandler) EventType() string {
	return entity.EventTypePublishInvoice
}

func (h *PublishHandler) Handle(ctx context.Context, event *entity.OutboxEvent) error {
	err := h.publisher.Publish(ctx, event.EntityID.String(), event.ID.String(), event.Payload)
	if err != nil {
		return fmt.Errorf("PublishHandler - Handle - h.publisher.Publish: %w", err)
	}

	return nil
}

func (h *PublishHandler) OnExhausted(_ context.Context, _ *entity.OutboxEvent, _ string) {
	// nothing to converge; the outbox row itself is the record of failure
}
