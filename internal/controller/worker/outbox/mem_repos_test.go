package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

// in-memory repos emulating the postgres value semantics (rows are copies,
// upsert keyed on invoice+target keeps id and created_at)

type memOutboxRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*entity.OutboxEvent
}

func newMemOutboxRepo() *memOutboxRepo {
	return &memOutboxRepo{events: make(map[uuid.UUID]*entity.OutboxEvent)}
}

func (r *memOutboxRepo) Create(_ context.Context, event *entity.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *event
	r.events[event.ID] = &cp

	return nil
}

func (r *memOutboxRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *event

	return &cp, nil
}

func (r *memOutboxRepo) GetDueEvents(_ context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*entity.OutboxEvent
	for _, event := range r.events {
		if event.Status != entity.EventPending {
			continue
		}
		if event.NextRetryAt != nil && event.NextRetryAt.After(now) {
			continue
		}
		cp := *event
		due = append(due, &cp)
	}

	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })

	if len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *memOutboxRepo) ClaimProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok || event.Status != entity.EventPending {
		return false, nil
	}

	event.Status = entity.EventProcessing
	event.UpdatedAt = time.Now()

	return true, nil
}

func (r *memOutboxRepo) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return errs.ErrRecordNotFound
	}

	event.Status = entity.EventSucceeded
	event.UpdatedAt = time.Now()

	return nil
}

func (r *memOutboxRepo) ScheduleRetry(_ context.Context, id uuid.UUID, retryCount int, lastError string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return errs.ErrRecordNotFound
	}

	event.Status = entity.EventPending
	event.RetryCount = retryCount
	event.LastError = &lastError
	event.NextRetryAt = &nextRetryAt
	event.UpdatedAt = time.Now()

	return nil
}

func (r *memOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, retryCount int, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return errs.ErrRecordNotFound
	}

	event.Status = entity.EventFailed
	event.RetryCount = retryCount
	event.LastError = &lastError
	event.UpdatedAt = time.Now()

	return nil
}

// makeDue clears the retry delay so the next tick picks the event up.
func (r *memOutboxRepo) makeDue(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.events[id]; ok {
		past := time.Now().Add(-time.Second)
		event.NextRetryAt = &past
	}
}

func (r *memOutboxRepo) all() []*entity.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []*entity.OutboxEvent
	for _, event := range r.events {
		cp := *event
		events = append(events, &cp)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })

	return events
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*entity.Invoice
	lines    map[uuid.UUID][]*entity.InvoiceLine
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		invoices: make(map[uuid.UUID]*entity.Invoice),
		lines:    make(map[uuid.UUID][]*entity.InvoiceLine),
	}
}

func (r *memInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice, lines []*entity.InvoiceLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *invoice
	r.invoices[invoice.ID] = &cp
	for _, line := range lines {
		lcp := *line
		r.lines[invoice.ID] = append(r.lines[invoice.ID], &lcp)
	}

	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *invoice

	return &cp, nil
}

func (r *memInvoiceRepo) GetLines(_ context.Context, invoiceID uuid.UUID) ([]*entity.InvoiceLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []*entity.InvoiceLine
	for _, line := range r.lines[invoiceID] {
		cp := *line
		lines = append(lines, &cp)
	}

	return lines, nil
}

func (r *memInvoiceRepo) rename(id uuid.UUID, customerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return errs.ErrRecordNotFound
	}

	invoice.CustomerName = customerName

	return nil
}

type memExportRepo struct {
	mu      sync.Mutex
	records map[string]*entity.ExportRecord
}

func newMemExportRepo() *memExportRepo {
	return &memExportRepo{records: make(map[string]*entity.ExportRecord)}
}

func exportKey(invoiceID uuid.UUID, targetSystem string) string {
	return fmt.Sprintf("%s/%s", invoiceID, targetSystem)
}

func (r *memExportRepo) Upsert(_ context.Context, record *entity.ExportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := exportKey(record.InvoiceID, record.TargetSystem)

	if existing, ok := r.records[key]; ok {
		existing.Status = record.Status
		existing.ExternalRef = record.ExternalRef
		existing.LastError = record.LastError
		existing.UpdatedAt = record.UpdatedAt

		return nil
	}

	cp := *record
	r.records[key] = &cp

	return nil
}

func (r *memExportRepo) GetByInvoiceAndTarget(_ context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[exportKey(invoiceID, targetSystem)]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *record

	return &cp, nil
}

func (r *memExportRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*entity.ExportRecord
	for _, record := range r.records {
		if record.InvoiceID == invoiceID {
			cp := *record
			records = append(records, &cp)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })

	return records, nil
}

func (r *memExportRepo) MarkSent(_ context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[exportKey(invoiceID, targetSystem)]
	if !ok {
		return errs.ErrRecordNotFound
	}

	record.Status = entity.ExportSent
	record.ExternalRef = &externalRef
	record.LastError = nil
	record.UpdatedAt = time.Now()

	return nil
}

func (r *memExportRepo) MarkFailed(_ context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[exportKey(invoiceID, targetSystem)]
	if !ok {
		return errs.ErrRecordNotFound
	}

	record.Status = entity.ExportFailed
	record.LastError = &lastError
	record.UpdatedAt = time.Now()

	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{}
}

func (r *memAuditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.entries = append(r.entries, &cp)

	return nil
}

func (r *memAuditRepo) ListByEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []*entity.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EntityType == entityType && r.entries[i].EntityID == entityID {
			cp := *r.entries[i]
			entries = append(entries, &cp)
		}
	}

	return entries, nil
}

func (r *memAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var actions []string
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}

	return actions
}

type nopTransactor struct{}

func (nopTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}
