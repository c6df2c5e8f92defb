package entity

import (
	"time"

	"github.com/google/uuid"
)

const TargetSystemVisma = "VISMA"

// ExportRecord tracks one invoice's synchronization with one external
// accounting system. At most one row exists per (invoice, target system);
// re-queuing updates the row in place.
type ExportRecord struct {
	ID           uuid.UUID    `json:"id"`
	InvoiceID    uuid.UUID    `json:"invoice_id"`
	TargetSystem string       `json:"target_system"`
	Status       ExportStatus `json:"status"` // pending, sent, failed, confirmed
	ExternalRef  *string      `json:"external_ref,omitempty"`
	LastError    *string      `json:"last_error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
