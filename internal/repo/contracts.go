package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
)

type (
	InvoiceRepo interface {
		Create(ctx context.Context, invoice *entity.Invoice, lines []*entity.InvoiceLine) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
		GetLines(ctx context.Context, invoiceID uuid.UUID) ([]*entity.InvoiceLine, error)
	}

	// OutboxRepo is the only write path for outbox rows. Events are never
	// deleted; they are the durable record of what was attempted.
	OutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.OutboxEvent, error)
		GetDueEvents(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error)
		// ClaimProcessing flips pending -> processing for one event. The
		// conditional update makes a lost race return false, not an error.
		ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
		MarkSucceeded(ctx context.Context, id uuid.UUID) error
		ScheduleRetry(ctx context.Context, id uuid.UUID, retryCount int, lastError string, nextRetryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string) error
	}

	ExportRecordRepo interface {
		Upsert(ctx context.Context, record *entity.ExportRecord) error
		GetByInvoiceAndTarget(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error)
		ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error)
		MarkSent(ctx context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error
		MarkFailed(ctx context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error
	}

	AuditRepo interface {
		Append(ctx context.Context, entry *entity.AuditEntry) error
		ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error)
	}

	ArchiveRepo interface {
		UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error
		DownloadBytes(ctx context.Context, key string) ([]byte, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
