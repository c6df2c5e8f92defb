package export

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrimsby/property-ops/internal/dto"
	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/infrastructure/visma"
	"github.com/mgrimsby/property-ops/pkg/logger"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

type stubInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*entity.Invoice
	lines    map[uuid.UUID][]*entity.InvoiceLine
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{
		invoices: make(map[uuid.UUID]*entity.Invoice),
		lines:    make(map[uuid.UUID][]*entity.InvoiceLine),
	}
}

func (r *stubInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice, lines []*entity.InvoiceLine) error {
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

func (r *stubInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *invoice

	return &cp, nil
}

func (r *stubInvoiceRepo) GetLines(_ context.Context, invoiceID uuid.UUID) ([]*entity.InvoiceLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []*entity.InvoiceLine
	for _, line := range r.lines[invoiceID] {
		cp := *line
		lines = append(lines, &cp)
	}

	return lines, nil
}

type stubExportRepo struct {
	mu      sync.Mutex
	records map[string]*entity.ExportRecord
}

func newStubExportRepo() *stubExportRepo {
	return &stubExportRepo{records: make(map[string]*entity.ExportRecord)}
}

func (r *stubExportRepo) key(invoiceID uuid.UUID, targetSystem string) string {
	return invoiceID.String() + "/" + targetSystem
}

func (r *stubExportRepo) Upsert(_ context.Context, record *entity.ExportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(record.InvoiceID, record.TargetSystem)

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

func (r *stubExportRepo) GetByInvoiceAndTarget(_ context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[r.key(invoiceID, targetSystem)]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *record

	return &cp, nil
}

func (r *stubExportRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*entity.ExportRecord
	for _, record := range r.records {
		if record.InvoiceID == invoiceID {
			cp := *record
			records = append(records, &cp)
		}
	}

	return records, nil
}

func (r *stubExportRepo) MarkSent(_ context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[r.key(invoiceID, targetSystem)]
	if !ok {
		return errs.ErrRecordNotFound
	}

	record.Status = entity.ExportSent
	record.ExternalRef = &externalRef
	record.LastError = nil
	record.UpdatedAt = time.Now()

	return nil
}

func (r *stubExportRepo) MarkFailed(_ context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[r.key(invoiceID, targetSystem)]
	if !ok {
		return errs.ErrRecordNotFound
	}

	record.Status = entity.ExportFailed
	record.LastError = &lastError
	record.UpdatedAt = time.Now()

	return nil
}

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func (r *stubAuditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.entries = append(r.entries, &cp)

	return nil
}

func (r *stubAuditRepo) ListByEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error) {
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

// stubOutbox records enqueued events without any processing.
type stubOutbox struct {
	mu      sync.Mutex
	events  []*entity.OutboxEvent
	failOn  string
	failErr error
}

func (s *stubOutbox) Enqueue(_ context.Context, eventType, entityType string, entityID uuid.UUID, payload []byte) (*entity.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn == eventType && s.failErr != nil {
		return nil, s.failErr
	}

	event := &entity.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		Status:     entity.EventPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	s.events = append(s.events, event)

	return event, nil
}

func (s *stubOutbox) GetDueEvents(_ context.Context, _ int, _ time.Time) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

func (s *stubOutbox) ClaimProcessing(_ context.Context, _ uuid.UUID) (bool, error) { return false, nil }

func (s *stubOutbox) MarkSucceeded(_ context.Context, _ *entity.OutboxEvent) error { return nil }

func (s *stubOutbox) ScheduleRetry(_ context.Context, _ *entity.OutboxEvent, _ string, _ time.Time) error {
	return nil
}

func (s *stubOutbox) MarkFailed(_ context.Context, _ *entity.OutboxEvent, _ string) error { return nil }

func (s *stubOutbox) enqueued() []*entity.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*entity.OutboxEvent, len(s.events))
	copy(events, s.events)

	return events
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

type testEnv struct {
	invoiceRepo *stubInvoiceRepo
	exportRepo  *stubExportRepo
	auditRepo   *stubAuditRepo
	outbox      *stubOutbox
	uc          *ExportUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		invoiceRepo: newStubInvoiceRepo(),
		exportRepo:  newStubExportRepo(),
		auditRepo:   &stubAuditRepo{},
		outbox:      &stubOutbox{},
	}

	env.uc = New(
		env.invoiceRepo,
		env.exportRepo,
		env.auditRepo,
		env.outbox,
		visma.New(visma.SubmitDelay(0)),
		passthroughTransactor{},
		logger.New("error"),
	)

	return env
}

func (env *testEnv) addInvoice(t *testing.T, mutate func(*entity.Invoice)) uuid.UUID {
	t.Helper()

	invoiceID := uuid.New()
	invoice := &entity.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "2026-0007",
		CustomerName:  "Bryggen Eiendom AS",
		ReferenceOne:  "PO-5512",
		ReferenceTwo:  "DEPT-3",
		Currency:      "NOK",
		Subtotal:      800,
		VATTotal:      200,
		Total:         1000,
		CreatedAt:     time.Now(),
	}
	lines := []*entity.InvoiceLine{
		{ID: uuid.New(), InvoiceID: invoiceID, Description: "Conference room, full day", Quantity: 1, UnitPrice: 800, VATCode: "25", LineTotal: 800},
	}

	if mutate != nil {
		mutate(invoice)
	}

	require.NoError(t, env.invoiceRepo.Create(context.Background(), invoice, lines))

	return invoiceID
}

func TestQueueExport_UnknownInvoice(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.uc.QueueExport(context.Background(), uuid.New(), entity.TargetSystemVisma)
	assert.ErrorIs(t, err, errs.ErrRecordNotFound)
	assert.Empty(t, env.outbox.enqueued())
}

func TestQueueExport_MissingReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	missingOne := env.addInvoice(t, func(i *entity.Invoice) { i.ReferenceOne = "" })
	missingTwo := env.addInvoice(t, func(i *entity.Invoice) { i.ReferenceTwo = "" })

	for _, invoiceID := range []uuid.UUID{missingOne, missingTwo} {
		_, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
		assert.ErrorIs(t, err, errs.ErrValidation)
	}

	assert.Empty(t, env.outbox.enqueued())
}

func TestQueueExport_NoLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := uuid.New()
	invoice := &entity.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "2026-0008",
		CustomerName:  "Tomt AS",
		ReferenceOne:  "PO-1",
		ReferenceTwo:  "DEPT-1",
		Currency:      "NOK",
	}
	require.NoError(t, env.invoiceRepo.Create(ctx, invoice, nil))

	_, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	assert.ErrorIs(t, err, errs.ErrNoLines)
	assert.Empty(t, env.outbox.enqueued())
}

func TestQueueExport_IdempotentRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	first, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	second, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	// one record per (invoice, target): the second queue keeps identity
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	records, err := env.uc.GetExportStatus(ctx, invoiceID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// each queue still produces its own event
	assert.Len(t, env.outbox.enqueued(), 2)
}

func TestQueueExport_PayloadIsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	_, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	env.invoiceRepo.mu.Lock()
	env.invoiceRepo.invoices[invoiceID].CustomerName = "Renamed AS"
	env.invoiceRepo.mu.Unlock()

	events := env.outbox.enqueued()
	require.Len(t, events, 1)

	var envelope dto.ExportEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	assert.Equal(t, "Bryggen Eiendom AS", envelope.Document.CustomerName)
	assert.Equal(t, entity.TargetSystemVisma, envelope.TargetSystem)
	assert.Equal(t, 1000.0, envelope.Document.Totals.Total)
}

func TestRetryExport_RequiresExistingRecord(t *testing.T) {
	env := newTestEnv(t)

	invoiceID := env.addInvoice(t, nil)

	_, err := env.uc.RetryExport(context.Background(), invoiceID, entity.TargetSystemVisma)
	assert.ErrorIs(t, err, errs.ErrRecordNotFound)
}

func TestRetryExport_ClearsOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	queued, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	require.NoError(t, env.uc.FailExport(ctx, invoiceID, entity.TargetSystemVisma, "visma rejected"))

	record, err := env.uc.RetryExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)
	assert.Equal(t, queued.ID, record.ID)
	assert.Equal(t, entity.ExportPending, record.Status)
	assert.Nil(t, record.LastError)
	assert.Nil(t, record.ExternalRef)

	// queue + retry
	assert.Len(t, env.outbox.enqueued(), 2)
}

func TestCompleteExport_MarksSent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	_, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	require.NoError(t, env.uc.CompleteExport(ctx, invoiceID, entity.TargetSystemVisma, "VISMA-123"))

	records, err := env.uc.GetExportStatus(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.ExportSent, records[0].Status)
	require.NotNil(t, records[0].ExternalRef)
	assert.Equal(t, "VISMA-123", *records[0].ExternalRef)
}

func TestAnnounceInvoice_EnqueuesPublishEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	require.NoError(t, env.uc.AnnounceInvoice(ctx, invoiceID, "invoice_issued"))

	events := env.outbox.enqueued()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventTypePublishInvoice, events[0].EventType)

	var announcement dto.InvoiceAnnouncement
	require.NoError(t, json.Unmarshal(events[0].Payload, &announcement))
	assert.Equal(t, invoiceID.String(), announcement.InvoiceID)
	assert.Equal(t, "invoice_issued", announcement.Action)
}

func TestGetAuditTrail_RecordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoiceID := env.addInvoice(t, nil)

	_, err := env.uc.QueueExport(ctx, invoiceID, entity.TargetSystemVisma)
	require.NoError(t, err)

	require.NoError(t, env.uc.CompleteExport(ctx, invoiceID, entity.TargetSystemVisma, "VISMA-999"))

	entries, err := env.uc.GetAuditTrail(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// newest first
	assert.Equal(t, entity.AuditExportSent, entries[0].Action)
	assert.Equal(t, entity.AuditExportQueued, entries[1].Action)
	for _, entry := range entries {
		assert.Equal(t, "billing", entry.Actor)
	}
}
