package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/infrastructure"
	"github.com/mgrimsby/property-ops/internal/repo"
	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

type ExportUseCase struct {
	invoiceRepo repo.InvoiceRepo
	exportRepo  repo.ExportRecordRepo
	auditRepo   repo.AuditRepo
	outbox      usecase.OutboxUseCase
	gateway     infrastructure.ExportGateway
	transactor  repo.Transactor

	logger logger.Interface
}

func New(
	invoiceRepo repo.InvoiceRepo,
	exportRepo repo.ExportRecordRepo,
	auditRepo repo.AuditRepo,
	outbox usecase.OutboxUseCase,
	gateway infrastructure.ExportGateway,
	transactor repo.Transactor,
	l logger.Interface,
) *ExportUseCase {
	return &ExportUseCase{
		invoiceRepo: invoiceRepo,
		exportRepo:  exportRepo,
		auditRepo:   auditRepo,
		outbox:      outbox,
		gateway:     gateway,
		transactor:  transactor,
		logger:      l,
	}
}

// QueueExport validates the invoice, upserts the export record to pending and
// appends one outbox event, then returns without touching the external
// system. The payload is frozen here so later invoice edits cannot change
// what gets submitted.
func (uc *ExportUseCase) QueueExport(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error) {
	invoice, lines, err := uc.loadValidInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - QueueExport: %w", err)
	}

	envelope, err := uc.buildEnvelope(invoice, lines, targetSystem)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - QueueExport - uc.buildEnvelope: %w", err)
	}

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		now := time.Now()

		// upsert keyed by (invoice, target system); existing id and
		// created_at survive the conflict
		record := &entity.ExportRecord{
			ID:           uuid.New(),
			InvoiceID:    invoiceID,
			TargetSystem: targetSystem,
			Status:       entity.ExportPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := uc.exportRepo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("ExportUseCase - QueueExport - uc.exportRepo.Upsert: %w", err)
		}

		if _, err := uc.outbox.Enqueue(ctx, entity.EventTypeExportInvoice, entity.EntityTypeInvoice, invoiceID, envelope); err != nil {
			return fmt.Errorf("ExportUseCase - QueueExport - uc.outbox.Enqueue: %w", err)
		}

		uc.audit(ctx, invoiceID, entity.AuditExportQueued,
			fmt.Sprintf("export of invoice %s to %s queued", invoice.InvoiceNumber, targetSystem))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - QueueExport - uc.transactor.WithinTransaction: %w", err)
	}

	record, err := uc.exportRepo.GetByInvoiceAndTarget(ctx, invoiceID, targetSystem)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - QueueExport - uc.exportRepo.GetByInvoiceAndTarget: %w", err)
	}

	return record, nil
}

// RetryExport is the only path that resets state after a terminal failure.
// It enqueues a brand-new event; the old terminal one stays as history.
func (uc *ExportUseCase) RetryExport(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error) {
	existing, err := uc.exportRepo.GetByInvoiceAndTarget(ctx, invoiceID, targetSystem)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - RetryExport - uc.exportRepo.GetByInvoiceAndTarget: %w", err)
	}

	invoice, lines, err := uc.loadValidInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - RetryExport: %w", err)
	}

	envelope, err := uc.buildEnvelope(invoice, lines, targetSystem)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - RetryExport - uc.buildEnvelope: %w", err)
	}

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		record := &entity.ExportRecord{
			ID:           existing.ID,
			InvoiceID:    invoiceID,
			TargetSystem: targetSystem,
			Status:       entity.ExportPending,
			ExternalRef:  nil,
			LastError:    nil,
			CreatedAt:    existing.CreatedAt,
			UpdatedAt:    time.Now(),
		}
		if err := uc.exportRepo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("ExportUseCase - RetryExport - uc.exportRepo.Upsert: %w", err)
		}

		if _, err := uc.outbox.Enqueue(ctx, entity.EventTypeExportInvoice, entity.EntityTypeInvoice, invoiceID, envelope); err != nil {
			return fmt.Errorf("ExportUseCase - RetryExport - uc.outbox.Enqueue: %w", err)
		}

		uc.audit(ctx, invoiceID, entity.AuditExportRetried,
			fmt.Sprintf("export of invoice %s to %s re-queued by operator", invoice.InvoiceNumber, targetSystem))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - RetryExport - uc.transactor.WithinTransaction: %w", err)
	}

	record, err := uc.exportRepo.GetByInvoiceAndTarget(ctx, invoiceID, targetSystem)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - RetryExport - uc.exportRepo.GetByInvoiceAndTarget: %w", err)
	}

	return record, nil
}

func (uc *ExportUseCase) GetExportStatus(ctx context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error) {
	records, err := uc.exportRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - GetExportStatus - uc.exportRepo.ListByInvoice: %w", err)
	}

	return records, nil
}

func (uc *ExportUseCase) GetAuditTrail(ctx context.Context, invoiceID uuid.UUID) ([]*entity.AuditEntry, error) {
	entries, err := uc.auditRepo.ListByEntity(ctx, entity.EntityTypeInvoice, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ExportUseCase - GetAuditTrail - uc.auditRepo.ListByEntity: %w", err)
	}

	return entries, nil
}

// AnnounceInvoice queues an invoice lifecycle announcement for the message
// broker through the same outbox.
func (uc *ExportUseCase) AnnounceInvoice(ctx context.Context, invoiceID uuid.UUID, action string) error {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("ExportUseCase - AnnounceInvoice - uc.invoiceRepo.GetByID: %w", err)
	}

	payload, err := uc.buildAnnouncement(invoice, action)
	if err != nil {
		return fmt.Errorf("ExportUseCase - AnnounceInvoice - uc.buildAnnouncement: %w", err)
	}

	_, err = uc.outbox.Enqueue(ctx, entity.EventTypePublishInvoice, entity.EntityTypeInvoice, invoiceID, payload)
	if err != nil {
		return fmt.Errorf("ExportUseCase - AnnounceInvoice - uc.outbox.Enqueue: %w", err)
	}

	return nil
}

// CompleteExport converges the record to sent. Called by the processor's
// export handler after a successful submission.
func (uc *ExportUseCase) CompleteExport(ctx context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error {
	err := uc.exportRepo.MarkSent(ctx, invoiceID, targetSystem, externalRef)
	if err != nil {
		return fmt.Errorf("ExportUseCase - CompleteExport - uc.exportRepo.MarkSent: %w", err)
	}

	uc.audit(ctx, invoiceID, entity.AuditExportSent,
		fmt.Sprintf("export to %s accepted, external ref %s", targetSystem, externalRef))

	return nil
}

// FailExport converges the record to failed once retries are exhausted; the
// failure becomes operator-visible via GetExportStatus.
func (uc *ExportUseCase) FailExport(ctx context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error {
	err := uc.exportRepo.MarkFailed(ctx, invoiceID, targetSystem, lastError)
	if err != nil {
		return fmt.Errorf("ExportUseCase - FailExport - uc.exportRepo.MarkFailed: %w", err)
	}

	uc.audit(ctx, invoiceID, entity.AuditExportFailed,
		fmt.Sprintf("export to %s failed terminally: %s", targetSystem, lastError))

	return nil
}

func (uc *ExportUseCase) loadValidInvoice(ctx context.Context, invoiceID uuid.UUID) (*entity.Invoice, []*entity.InvoiceLine, error) {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("uc.invoiceRepo.GetByID: %w", err)
	}

	if invoice.ReferenceOne == "" || invoice.ReferenceTwo == "" {
		return nil, nil, errs.ErrMissingReference
	}

	lines, err := uc.invoiceRepo.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("uc.invoiceRepo.GetLines: %w", err)
	}

	if len(lines) == 0 {
		return nil, nil, errs.ErrNoLines
	}

	return invoice, lines, nil
}

func (uc *ExportUseCase) audit(ctx context.Context, invoiceID uuid.UUID, action, detail string) {
	err := uc.auditRepo.Append(ctx, &entity.AuditEntry{
		ID:         uuid.New(),
		Actor:      "billing",
		Action:     action,
		EntityType: entity.EntityTypeInvoice,
		EntityID:   invoiceID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		uc.logger.Error(err, "ExportUseCase - audit - uc.auditRepo.Append")
	}
}
