package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExportInvoice  = "EXPORT_INVOICE"
	EventTypePublishInvoice = "PUBLISH_INVOICE_EVENT"

	EntityTypeInvoice = "INVOICE"
)

// OutboxEvent is the durable work queue row. Payload is a snapshot captured
// at enqueue time; handlers must not mutate it.
type OutboxEvent struct {
	ID          uuid.UUID   `json:"id"`
	EventType   string      `json:"event_type"`
	EntityType  string      `json:"entity_type"`
	EntityID    uuid.UUID   `json:"entity_id"`
	Payload     []byte      `json:"payload"`
	Status      EventStatus `json:"status"` // pending, processing, succeeded, failed
	RetryCount  int         `json:"retry_count"`
	LastError   *string     `json:"last_error,omitempty"`
	NextRetryAt *time.Time  `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
