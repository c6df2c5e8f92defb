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
	exportsTable = "export_records"

	// Columns
	exportIDColumn           = "id"
	exportInvoiceIDColumn    = "invoice_id"
	exportTargetSystemColumn = "target_system"
	exportStatusColumn       = "status"
	exportExternalRefColumn  = "external_ref"
	exportLastErrorColumn    = "last_error"
	exportCreatedAtColumn    = "created_at"
	exportUpdatedAtColumn    = "updated_at"
)

type ExportRecordRepo struct {
	*postgres.Postgres
}

func NewExportRecordRepo(pg *postgres.Postgres) *ExportRecordRepo {
	return &ExportRecordRepo{pg}
}

// Upsert keys on (invoice_id, target_system); re-queuing refreshes the
// existing row instead of inserting a duplicate.
func (r *ExportRecordRepo) Upsert(ctx context.Context, record *entity.ExportRecord) error {
	sql, args, err := r.Builder.
		Insert(exportsTable).
		Columns(
			exportIDColumn,
			exportInvoiceIDColumn,
			exportTargetSystemColumn,
			exportStatusColumn,
			exportExternalRefColumn,
			exportLastErrorColumn,
			exportCreatedAtColumn,
			exportUpdatedAtColumn,
		).
		Values(
			record.ID,
			record.InvoiceID,
			record.TargetSystem,
			record.Status,
			record.ExternalRef,
			record.LastError,
			record.CreatedAt,
			record.UpdatedAt,
		).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%s, %s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s",
			exportInvoiceIDColumn, exportTargetSystemColumn,
			exportStatusColumn, exportStatusColumn,
			exportExternalRefColumn, exportExternalRefColumn,
			exportLastErrorColumn, exportLastErrorColumn,
			exportUpdatedAtColumn, exportUpdatedAtColumn,
		)).
		ToSql()
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - Upsert - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - Upsert - executor.Exec: %w", err)
	}

	return nil
}

func (r *ExportRecordRepo) GetByInvoiceAndTarget(ctx context.Context, invoiceID uuid.UUID, targetSystem string) (*entity.ExportRecord, error) {
	sql, args, err := r.selectRecords().
		Where(squirrel.And{
			squirrel.Eq{exportInvoiceIDColumn: invoiceID},
			squirrel.Eq{exportTargetSystemColumn: targetSystem},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ExportRecordRepo - GetByInvoiceAndTarget - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var record entity.ExportRecord
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&record.ID,
		&record.InvoiceID,
		&record.TargetSystem,
		&record.Status,
		&record.ExternalRef,
		&record.LastError,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ExportRecordRepo - GetByInvoiceAndTarget: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ExportRecordRepo - GetByInvoiceAndTarget - executor.QueryRow: %w", err)
	}

	return &record, nil
}

func (r *ExportRecordRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*entity.ExportRecord, error) {
	sql, args, err := r.selectRecords().
		Where(squirrel.Eq{exportInvoiceIDColumn: invoiceID}).
		OrderBy(exportUpdatedAtColumn + " DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ExportRecordRepo - ListByInvoice - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ExportRecordRepo - ListByInvoice - executor.Query: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExportRecord
	for rows.Next() {
		var record entity.ExportRecord
		err = rows.Scan(
			&record.ID,
			&record.InvoiceID,
			&record.TargetSystem,
			&record.Status,
			&record.ExternalRef,
			&record.LastError,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ExportRecordRepo - ListByInvoice - rows.Scan: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExportRecordRepo - ListByInvoice - rows.Err: %w", err)
	}

	return records, nil
}

func (r *ExportRecordRepo) MarkSent(ctx context.Context, invoiceID uuid.UUID, targetSystem, externalRef string) error {
	sql, args, err := r.Builder.
		Update(exportsTable).
		Set(exportStatusColumn, entity.ExportSent).
		Set(exportExternalRefColumn, externalRef).
		Set(exportLastErrorColumn, nil).
		Set(exportUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{exportInvoiceIDColumn: invoiceID},
			squirrel.Eq{exportTargetSystemColumn: targetSystem},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - MarkSent - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - MarkSent - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ExportRecordRepo - MarkSent: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *ExportRecordRepo) MarkFailed(ctx context.Context, invoiceID uuid.UUID, targetSystem, lastError string) error {
	sql, args, err := r.Builder.
		Update(exportsTable).
		Set(exportStatusColumn, entity.ExportFailed).
		Set(exportLastErrorColumn, lastError).
		Set(exportUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{exportInvoiceIDColumn: invoiceID},
			squirrel.Eq{exportTargetSystemColumn: targetSystem},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - MarkFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ExportRecordRepo - MarkFailed - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ExportRecordRepo - MarkFailed: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *ExportRecordRepo) selectRecords() squirrel.SelectBuilder {
	return r.Builder.
		Select(
			exportIDColumn,
			exportInvoiceIDColumn,
			exportTargetSystemColumn,
			exportStatusColumn,
			exportExternalRefColumn,
			exportLastErrorColumn,
			exportCreatedAtColumn,
			exportUpdatedAtColumn,
		).
		From(exportsTable)
}
