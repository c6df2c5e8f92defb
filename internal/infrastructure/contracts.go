package infrastructure

import (
	"context"

	"github.com/mgrimsby/property-ops/internal/dto"
	"github.com/mgrimsby/property-ops/internal/entity"
)

type (
	// ExportGateway is the external accounting system boundary. Submit is
	// allowed to be slow and to fail; the processor treats any error as a
	// retryable failure.
	ExportGateway interface {
		BuildPayload(invoice *entity.Invoice, lines []*entity.InvoiceLine) dto.ExportPayload
		Submit(ctx context.Context, payload dto.ExportPayload) (string, error)
	}

	// EventsPublisher pushes invoice announcements to the message broker.
	EventsPublisher interface {
		Publish(ctx context.Context, key, eventID string, value []byte) error
		Close() error
	}
)
