package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/pkg/postgres"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

const (
	// Table
	outboxTable = "outbox_events"

	// Columns
	outboxIDColumn          = "id"
	outboxEventTypeColumn   = "event_type"
	outboxEntityTypeColumn  = "entity_type"
	outboxEntityIDColumn    = "entity_id"
	outboxPayloadColumn     = "payload"
	outboxStatusColumn      = "status"
	outboxRetryCountColumn  = "retry_count"
	outboxLastErrorColumn   = "last_error"
	outboxNextRetryAtColumn = "next_retry_at"
	outboxCreatedAtColumn   = "created_at"
	outboxUpdatedAtColumn   = "updated_at"
)

type OutboxRepo struct {
	*postgres.Postgres
}

func NewOutboxRepo(pg *postgres.Postgres) *OutboxRepo {
	return &OutboxRepo{pg}
}

func (r *OutboxRepo) Create(ctx context.Context, event *entity.OutboxEvent) error {
	sql, args, err := r.Builder.
		Insert(outboxTable).
		Columns(
			outboxIDColumn,
			outboxEventTypeColumn,
			outboxEntityTypeColumn,
			outboxEntityIDColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxRetryCountColumn,
			outboxCreatedAtColumn,
			outboxUpdatedAtColumn,
		).
		Values(
			event.ID,
			event.EventType,
			event.EntityType,
			event.EntityID,
			event.Payload,
			event.Status,
			event.RetryCount,
			event.CreatedAt,
			event.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *OutboxRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.OutboxEvent, error) {
	sql, args, err := r.selectEvents().
		Where(squirrel.Eq{outboxIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var event entity.OutboxEvent
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&event.ID,
		&event.EventType,
		&event.EntityType,
		&event.EntityID,
		&event.Payload,
		&event.Status,
		&event.RetryCount,
		&event.LastError,
		&event.NextRetryAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("OutboxRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("OutboxRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &event, nil
}

// GetDueEvents returns pending events whose nextRetryAt is unset or has
// passed, oldest first.
func (r *OutboxRepo) GetDueEvents(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error) {
	sql, args, err := r.selectEvents().
		Where(squirrel.And{
			squirrel.Eq{outboxStatusColumn: entity.EventPending},
			squirrel.Or{
				squirrel.Eq{outboxNextRetryAtColumn: nil},
				squirrel.LtOrEq{outboxNextRetryAtColumn: now},
			},
		}).
		OrderBy(outboxCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetDueEvents - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetDueEvents - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.OutboxEvent, 0, limit)
	for rows.Next() {
		var event entity.OutboxEvent
		err = rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EntityType,
			&event.EntityID,
			&event.Payload,
			&event.Status,
			&event.RetryCount,
			&event.LastError,
			&event.NextRetryAt,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("OutboxRepo - GetDueEvents - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetDueEvents - rows.Err: %w", err)
	}

	return events, nil
}

// ClaimProcessing is a conditional update keyed by id and expected prior
// status, so a concurrent claim on the same row fails harmlessly.
func (r *OutboxRepo) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, entity.EventProcessing).
		Set(outboxUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{outboxIDColumn: id},
			squirrel.Eq{outboxStatusColumn: entity.EventPending},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("OutboxRepo - ClaimProcessing - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("OutboxRepo - ClaimProcessing - executor.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *OutboxRepo) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, entity.EventSucceeded).
		Set(outboxUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{outboxIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkSucceeded - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkSucceeded - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - MarkSucceeded: %w", errs.ErrRecordNotFound)
	}

	return nil
}

// ScheduleRetry puts the event back to pending with the incremented retry
// count and the future pickup time.
func (r *OutboxRepo) ScheduleRetry(ctx context.Context, id uuid.UUID, retryCount int, lastError string, nextRetryAt time.Time) error {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, entity.EventPending).
		Set(outboxRetryCountColumn, retryCount).
		Set(outboxLastErrorColumn, lastError).
		Set(outboxNextRetryAtColumn, nextRetryAt).
		Set(outboxUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{outboxIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - ScheduleRetry - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - ScheduleRetry - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - ScheduleRetry: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string) error {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, entity.EventFailed).
		Set(outboxRetryCountColumn, retryCount).
		Set(outboxLastErrorColumn, lastError).
		Set(outboxUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{outboxIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - MarkFailed - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - MarkFailed: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OutboxRepo) selectEvents() squirrel.SelectBuilder {
	return r.Builder.
		Select(
			outboxIDColumn,
			outboxEventTypeColumn,
			outboxEntityTypeColumn,
			outboxEntityIDColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxRetryCountColumn,
			outboxLastErrorColumn,
			outboxNextRetryAtColumn,
			outboxCreatedAtColumn,
			outboxUpdatedAtColumn,
		).
		From(outboxTable)
}
