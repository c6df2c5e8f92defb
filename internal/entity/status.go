package entity

// EventStatus is the outbox event lifecycle state.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventSucceeded  EventStatus = "succeeded"
	EventFailed     EventStatus = "failed"
)

// ExportStatus is the operator-visible state of an export record.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportSent      ExportStatus = "sent"
	ExportFailed    ExportStatus = "failed"
	ExportConfirmed ExportStatus = "confirmed"
)
