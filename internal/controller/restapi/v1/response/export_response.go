package response

import "github.com/mgrimsby/property-ops/internal/entity"

type Error struct {
	Error string `json:"error" example:"message"`
}

type ExportRecord struct {
	ID           string `json:"id"`
	InvoiceID    string `json:"invoice_id"`
	TargetSystem string `json:"target_system"`
	Status       string `json:"status"`
	ExternalRef  string `json:"external_ref,omitempty"`
	LastError    string `json:"last_error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type AuditEntry struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

const _timeLayout = "2006-01-02T15:04:05Z07:00"

func NewExportRecord(record *entity.ExportRecord) ExportRecord {
	resp := ExportRecord{
		ID:           record.ID.String(),
		InvoiceID:    record.InvoiceID.String(),
		TargetSystem: record.TargetSystem,
		Status:       string(record.Status),
		CreatedAt:    record.CreatedAt.Format(_timeLayout),
		UpdatedAt:    record.UpdatedAt.Format(_timeLayout),
	}

	if record.ExternalRef != nil {
		resp.ExternalRef = *record.ExternalRef
	}
	if record.LastError != nil {
		resp.LastError = *record.LastError
	}

	return resp
}

func NewExportRecords(records []*entity.ExportRecord) []ExportRecord {
	resp := make([]ExportRecord, 0, len(records))
	for _, record := range records {
		resp = append(resp, NewExportRecord(record))
	}

	return resp
}

func NewAuditEntries(entries []*entity.AuditEntry) []AuditEntry {
	resp := make([]AuditEntry, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, AuditEntry{
			ID:        entry.ID.String(),
			Actor:     entry.Actor,
			Action:    entry.Action,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt.Format(_timeLayout),
		})
	}

	return resp
}
