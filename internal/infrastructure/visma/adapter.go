package visma

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mgrimsby/property-ops/internal/dto"
	"github.com/mgrimsby/property-ops/internal/entity"
)

const _defaultSubmitDelay = 200 * time.Millisecond

// Adapter translates invoices into Visma's document shape and performs the
// remote submission. The reference integration fails deterministically when
// the customer name contains "fail", which keeps retry behavior testable.
type Adapter struct {
	submitDelay time.Duration
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		submitDelay: _defaultSubmitDelay,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// BuildPayload reshapes already-computed totals and line VAT codes into the
// external document format. No I/O.
func (a *Adapter) BuildPayload(invoice *entity.Invoice, lines []*entity.InvoiceLine) dto.ExportPayload {
	exportLines := make([]dto.ExportLine, 0, len(lines))
	for _, line := range lines {
		exportLines = append(exportLines, dto.ExportLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VATCode:     line.VATCode,
		})
	}

	return dto.ExportPayload{
		InvoiceID:    invoice.ID.String(),
		CustomerName: invoice.CustomerName,
		ReferenceOne: invoice.ReferenceOne,
		ReferenceTwo: invoice.ReferenceTwo,
		Lines:        exportLines,
		Totals: dto.ExportTotals{
			Subtotal: invoice.Subtotal,
			VATTotal: invoice.VATTotal,
			Total:    invoice.Total,
		},
		Currency: invoice.Currency,
	}
}

// Submit performs the remote call. It honours ctx cancellation so the caller
// can bound it with a timeout.
func (a *Adapter) Submit(ctx context.Context, payload dto.ExportPayload) (string, error) {
	select {
	case <-time.After(a.submitDelay):
	case <-ctx.Done():
		return "", fmt.Errorf("Adapter - Submit - ctx.Done: %w", ctx.Err())
	}

	if strings.Contains(strings.ToLower(payload.CustomerName), "fail") {
		return "", fmt.Errorf("Adapter - Submit: visma rejected invoice %s for customer %q", payload.InvoiceID, payload.CustomerName)
	}

	ref := fmt.Sprintf("VISMA-%.8s-%d", payload.InvoiceID, time.Now().UnixNano())

	return ref, nil
}
