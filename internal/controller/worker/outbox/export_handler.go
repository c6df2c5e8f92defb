package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mgrimsby/property-ops/internal/dto"
	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/infrastructure"
	"github.com/mgrimsby/property-ops/internal/repo"
	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
)

// ExportHandler submits frozen invoice documents to the external accounting
// system and converges the export record to its outcome.
type ExportHandler struct {
	exp     usecase.ExportUseCase
	gateway infrastructure.ExportGateway
	archive repo.ArchiveRepo
	logger  logger.Interface
}

func NewExportHandler(exp usecase.ExportUseCase, gateway infrastructure.ExportGateway, archive repo.ArchiveRepo, l logger.Interface) *ExportHandler {
	return &ExportHandler{
		exp:     exp,
		gateway: gateway,
		archive: archive,
		logger:  l,
	}
}

func (h *ExportHandler) EventType() string {
	return entity.EventTypeExportInvoice
}

func (h *ExportHandler) Handle(ctx context.Context, event *entity.OutboxEvent) error {
	var envelope dto.ExportEnvelope
	err := json.Unmarshal(event.Payload, &envelope)
	if err != nil {
		return fmt.Errorf("ExportHandler - Handle - json.Unmarshal: %w", err)
	}

	externalRef, err := h.gateway.Submit(ctx, envelope.Document)
	if err != nil {
		return fmt.Errorf("ExportHandler - Handle - h.gateway.Submit: %w", err)
	}
	if externalRef == "" {
		return fmt.Errorf("ExportHandler - Handle: empty external ref for invoice %s", envelope.Document.InvoiceID)
	}

	err = h.exp.CompleteExport(ctx, event.EntityID, envelope.TargetSystem, externalRef)
	if err != nil {
		return fmt.Errorf("ExportHandler - Handle - h.exp.CompleteExport: %w", err)
	}

	// the submission already happened; archiving is best effort
	h.archivePayload(ctx, event, envelope)

	return nil
}

func (h *ExportHandler) OnExhausted(ctx context.Context, event *entity.OutboxEvent, lastError string) {
	var envelope dto.ExportEnvelope
	err := json.Unmarshal(event.Payload, &envelope)
	if err != nil {
		h.logger.Error(err, "ExportHandler - OnExhausted - json.Unmarshal")

		return
	}

	err = h.exp.FailExport(ctx, event.EntityID, envelope.TargetSystem, lastError)
	if err != nil {
		h.logger.Error(err, "ExportHandler - OnExhausted - h.exp.FailExport")
	}
}

func (h *ExportHandler) archivePayload(ctx context.Context, event *entity.OutboxEvent, envelope dto.ExportEnvelope) {
	if h.archive == nil {
		return
	}

	key := fmt.Sprintf("exports/%s/%s/%s.json", envelope.TargetSystem, event.EntityID, event.ID)

	err := h.archive.UploadBytes(ctx, key, event.Payload, "application/json", int64(len(event.Payload)))
	if err != nil {
		h.logger.Error(err, "ExportHandler - archivePayload - h.archive.UploadBytes")
	}
}
