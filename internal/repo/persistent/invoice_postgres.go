package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/pkg/postgres"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

const (
	// Tables
	invoicesTable     = "invoices"
	invoiceLinesTable = "invoice_lines"

	// Invoice columns
	invoiceIDColumn        = "id"
	invoiceNumberColumn    = "invoice_number"
	customerNameColumn     = "customer_name"
	referenceOneColumn     = "reference_one"
	referenceTwoColumn     = "reference_two"
	currencyColumn         = "currency"
	subtotalColumn         = "subtotal"
	vatTotalColumn         = "vat_total"
	totalColumn            = "total"
	invoiceCreatedAtColumn = "created_at"

	// Line columns
	lineIDColumn        = "id"
	lineInvoiceIDColumn = "invoice_id"
	descriptionColumn   = "description"
	quantityColumn      = "quantity"
	unitPriceColumn     = "unit_price"
	vatCodeColumn       = "vat_code"
	lineTotalColumn     = "line_total"
)

type InvoiceRepo struct {
	*postgres.Postgres
}

func NewInvoiceRepo(pg *postgres.Postgres) *InvoiceRepo {
	return &InvoiceRepo{pg}
}

func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice, lines []*entity.InvoiceLine) error {
	sql, args, err := r.Builder.
		Insert(invoicesTable).
		Columns(
			invoiceIDColumn,
			invoiceNumberColumn,
			customerNameColumn,
			referenceOneColumn,
			referenceTwoColumn,
			currencyColumn,
			subtotalColumn,
			vatTotalColumn,
			totalColumn,
			invoiceCreatedAtColumn,
		).
		Values(
			invoice.ID,
			invoice.InvoiceNumber,
			invoice.CustomerName,
			invoice.ReferenceOne,
			invoice.ReferenceTwo,
			invoice.Currency,
			invoice.Subtotal,
			invoice.VATTotal,
			invoice.Total,
			invoice.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("InvoiceRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("InvoiceRepo - Create - executor.Exec: %w", err)
	}

	for _, line := range lines {
		sql, args, err := r.Builder.
			Insert(invoiceLinesTable).
			Columns(
				lineIDColumn,
				lineInvoiceIDColumn,
				descriptionColumn,
				quantityColumn,
				unitPriceColumn,
				vatCodeColumn,
				lineTotalColumn,
			).
			Values(
				line.ID,
				line.InvoiceID,
				line.Description,
				line.Quantity,
				line.UnitPrice,
				line.VATCode,
				line.LineTotal,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("InvoiceRepo - Create - r.Builder.ToSql: %w", err)
		}

		_, err = executor.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("InvoiceRepo - Create - executor.Exec: %w", err)
		}
	}

	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	sql, args, err := r.Builder.
		Select(
			invoiceIDColumn,
			invoiceNumberColumn,
			customerNameColumn,
			referenceOneColumn,
			referenceTwoColumn,
			currencyColumn,
			subtotalColumn,
			vatTotalColumn,
			totalColumn,
			invoiceCreatedAtColumn,
		).
		From(invoicesTable).
		Where(squirrel.Eq{invoiceIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("InvoiceRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var invoice entity.Invoice
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&invoice.ID,
		&invoice.InvoiceNumber,
		&invoice.CustomerName,
		&invoice.ReferenceOne,
		&invoice.ReferenceTwo,
		&invoice.Currency,
		&invoice.Subtotal,
		&invoice.VATTotal,
		&invoice.Total,
		&invoice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("InvoiceRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("InvoiceRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &invoice, nil
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID uuid.UUID) ([]*entity.InvoiceLine, error) {
	sql, args, err := r.Builder.
		Select(
			lineIDColumn,
			lineInvoiceIDColumn,
			descriptionColumn,
			quantityColumn,
			unitPriceColumn,
			vatCodeColumn,
			lineTotalColumn,
		).
		From(invoiceLinesTable).
		Where(squirrel.Eq{lineInvoiceIDColumn: invoiceID}).
		OrderBy(lineIDColumn + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("InvoiceRepo - GetLines - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("InvoiceRepo - GetLines - executor.Query: %w", err)
	}
	defer rows.Close()

	var lines []*entity.InvoiceLine
	for rows.Next() {
		var line entity.InvoiceLine
		err = rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.Description,
			&line.Quantity,
			&line.UnitPrice,
			&line.VATCode,
			&line.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("InvoiceRepo - GetLines - rows.Scan: %w", err)
		}
		lines = append(lines, &line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("InvoiceRepo - GetLines - rows.Err: %w", err)
	}

	return lines, nil
}
