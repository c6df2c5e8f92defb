package export

import (
	"encoding/json"
	"fmt"

	"github.com/mgrimsby/property-ops/internal/dto"
	"github.com/mgrimsby/property-ops/internal/entity"
)

func (uc *ExportUseCase) buildEnvelope(invoice *entity.Invoice, lines []*entity.InvoiceLine, targetSystem string) ([]byte, error) {
	envelope := dto.ExportEnvelope{
		TargetSystem: targetSystem,
		Document:     uc.gateway.BuildPayload(invoice, lines),
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return b, nil
}

func (uc *ExportUseCase) buildAnnouncement(invoice *entity.Invoice, action string) ([]byte, error) {
	announcement := dto.InvoiceAnnouncement{
		InvoiceID:     invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		Action:        action,
	}

	b, err := json.Marshal(announcement)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return b, nil
}
