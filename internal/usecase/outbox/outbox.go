package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/repo"
	"github.com/mgrimsby/property-ops/pkg/logger"
)

// UseCase owns every outbox row transition. Domain services enqueue through
// it; the processor advances events through it. No other code path writes
// outbox rows.
type UseCase struct {
	outboxRepo repo.OutboxRepo
	auditRepo  repo.AuditRepo

	logger logger.Interface
}

func New(outboxRepo repo.OutboxRepo, auditRepo repo.AuditRepo, l logger.Interface) *UseCase {
	return &UseCase{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     l,
	}
}

// Enqueue appends exactly one pending event. No business validation happens
// here; unknown event types surface at dispatch time instead, which keeps
// enqueue cheap for callers.
func (uc *UseCase) Enqueue(ctx context.Context, eventType, entityType string, entityID uuid.UUID, payload []byte) (*entity.OutboxEvent, error) {
	now := time.Now()

	event := &entity.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		Status:     entity.EventPending,
		RetryCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := uc.outboxRepo.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("OutboxUseCase - Enqueue - uc.outboxRepo.Create: %w", err)
	}

	return event, nil
}

func (uc *UseCase) GetDueEvents(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error) {
	events, err := uc.outboxRepo.GetDueEvents(ctx, limit, now)
	if err != nil {
		return nil, fmt.Errorf("OutboxUseCase - GetDueEvents - uc.outboxRepo.GetDueEvents: %w", err)
	}

	return events, nil
}

func (uc *UseCase) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	claimed, err := uc.outboxRepo.ClaimProcessing(ctx, id)
	if err != nil {
		return false, fmt.Errorf("OutboxUseCase - ClaimProcessing - uc.outboxRepo.ClaimProcessing: %w", err)
	}

	return claimed, nil
}

func (uc *UseCase) MarkSucceeded(ctx context.Context, event *entity.OutboxEvent) error {
	err := uc.outboxRepo.MarkSucceeded(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - MarkSucceeded - uc.outboxRepo.MarkSucceeded: %w", err)
	}

	uc.audit(ctx, event, entity.AuditEventSucceeded, fmt.Sprintf("event %s succeeded after %d retries", event.EventType, event.RetryCount))

	return nil
}

// ScheduleRetry returns the event to pending with a future pickup time.
// retryCount on the passed event is the pre-increment value.
func (uc *UseCase) ScheduleRetry(ctx context.Context, event *entity.OutboxEvent, lastError string, nextRetryAt time.Time) error {
	attempt := event.RetryCount + 1

	err := uc.outboxRepo.ScheduleRetry(ctx, event.ID, attempt, lastError, nextRetryAt)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - ScheduleRetry - uc.outboxRepo.ScheduleRetry: %w", err)
	}

	uc.audit(ctx, event, entity.AuditRetryScheduled,
		fmt.Sprintf("event %s attempt %d scheduled for %s: %s", event.EventType, attempt, nextRetryAt.Format(time.RFC3339), lastError))

	return nil
}

// MarkFailed is terminal; no further automatic transition happens. The
// attempt that exhausted the budget is counted into retryCount.
func (uc *UseCase) MarkFailed(ctx context.Context, event *entity.OutboxEvent, lastError string) error {
	attempt := event.RetryCount + 1

	err := uc.outboxRepo.MarkFailed(ctx, event.ID, attempt, lastError)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - MarkFailed - uc.outboxRepo.MarkFailed: %w", err)
	}

	uc.audit(ctx, event, entity.AuditEventFailed,
		fmt.Sprintf("event %s failed terminally after %d attempts: %s", event.EventType, attempt, lastError))

	return nil
}

// audit failures are logged, never propagated; the state transition already
// happened.
func (uc *UseCase) audit(ctx context.Context, event *entity.OutboxEvent, action, detail string) {
	err := uc.auditRepo.Append(ctx, &entity.AuditEntry{
		ID:         uuid.New(),
		Actor:      "outbox-processor",
		Action:     action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		uc.logger.Error(err, "OutboxUseCase - audit - uc.auditRepo.Append")
	}
}
