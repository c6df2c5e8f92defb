package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
)

type (
	ExportUseCase interface {
		QueueExport(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error)
		RetryExport(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error)
		GetExportStatus(ctx context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error)
		GetAuditTrail(ctx context.Context, invoiceID uuid.UUID) ([]*entity.AuditEntry, error)
		AnnounceInvoice(ctx context.Context, invoiceID uuid.UUID, action string) error
		CompleteExport(ctx context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error
		FailExport(ctx context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error
	}

	OutboxUseCase interface {
		Enqueue(ctx context.Context, eventType, entityType string, entityID uuid.UUID, payload []byte) (*entity.OutboxEvent, error)
		GetDueEvents(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error)
		ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
		MarkSucceeded(ctx context.Context, event *entity.OutboxEvent) error
		ScheduleRetry(ctx context.Context, event *entity.OutboxEvent, lastError string, nextRetryAt time.Time) error
		MarkFailed(ctx context.Context, event *entity.OutboxEvent, lastError string) error
	}
)
