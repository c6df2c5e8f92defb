package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditExportQueued   = "export_queued"
	AuditExportRetried  = "export_retried"
	AuditExportSent     = "export_sent"
	AuditExportFailed   = "export_failed_terminal"
	AuditEventSucceeded = "outbox_event_succeeded"
	AuditRetryScheduled = "outbox_retry_scheduled"
	AuditEventFailed    = "outbox_failed_terminal"
)

// AuditEntry is one append-only row per meaningful transition.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
