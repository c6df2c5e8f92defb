package persistent

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/pkg/postgres"
)

const (
	// Table
	auditTable = "audit_entries"

	// Columns
	auditIDColumn         = "id"
	auditActorColumn      = "actor"
	auditActionColumn     = "action"
	auditEntityTypeColumn = "entity_type"
	auditEntityIDColumn   = "entity_id"
	auditDetailColumn     = "detail"
	auditCreatedAtColumn  = "created_at"
)

// AuditRepo is append-only; nothing updates or deletes rows.
type AuditRepo struct {
	*postgres.Postgres
}

func NewAuditRepo(pg *postgres.Postgres) *AuditRepo {
	return &AuditRepo{pg}
}

func (r *AuditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	sql, args, err := r.Builder.
		Insert(auditTable).
		Columns(
			auditIDColumn,
			auditActorColumn,
			auditActionColumn,
			auditEntityTypeColumn,
			auditEntityIDColumn,
			auditDetailColumn,
			auditCreatedAtColumn,
		).
		Values(
			entry.ID,
			entry.Actor,
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			entry.Detail,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("AuditRepo - Append - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("AuditRepo - Append - executor.Exec: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error) {
	sql, args, err := r.Builder.
		Select(
			auditIDColumn,
			auditActorColumn,
			auditActionColumn,
			auditEntityTypeColumn,
			auditEntityIDColumn,
			auditDetailColumn,
			auditCreatedAtColumn,
		).
		From(auditTable).
		Where(squirrel.And{
			squirrel.Eq{auditEntityTypeColumn: entityType},
			squirrel.Eq{auditEntityIDColumn: entityID},
		}).
		OrderBy(auditCreatedAtColumn + " DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("AuditRepo - ListByEntity - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("AuditRepo - ListByEntity - executor.Query: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		err = rows.Scan(
			&entry.ID,
			&entry.Actor,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Detail,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("AuditRepo - ListByEntity - rows.Scan: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AuditRepo - ListByEntity - rows.Err: %w", err)
	}

	return entries, nil
}
