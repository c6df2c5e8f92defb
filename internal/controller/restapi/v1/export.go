package v1

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mgrimsby/property-ops/internal/controller/restapi/v1/response"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

// @Summary  	Queue accounting export
// @Description Validates the invoice, freezes its export payload and queues an outbox event for the target accounting system
// @Tags 		exports
// @Produce 	json
// @Param 		id 	   path string true "Invoice ID(uuid)"
// @Param 		target path string true "Target system" Enums(VISMA)
// @Success 	201 {object} response.ExportRecord
// @Failure 	400 {object} response.Error "Missing references or lines"
// @Failure 	404 {object} response.Error "Invoice not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/invoices/{id}/exports/{target} [post]
func (r *V1) queueExport(ctx *fiber.Ctx) error {
	invoiceID, target, ok := r.exportParams(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	record, err := r.exp.QueueExport(ctx.UserContext(), invoiceID, target)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "invoice not found")
		}
		if errors.Is(err, errs.ErrValidation) {
			return errorResponse(ctx, http.StatusBadRequest, err.Error())
		}
		r.logger.Error(err, "restapi - v1 - queueExport")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusCreated).JSON(response.NewExportRecord(record))
}

// @Summary 	Retry accounting export
// @Description Resets a terminally failed export back to pending and queues a fresh outbox event; the old event stays as history
// @Tags 		exports
// @Produce 	json
// @Param 		id 	   path string true "Invoice ID(uuid)"
// @Param 		target path string true "Target system" Enums(VISMA)
// @Success 	200 {object} response.ExportRecord
// @Failure 	400 {object} response.Error "Missing references or lines"
// @Failure 	404 {object} response.Error "No prior export for invoice"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/invoices/{id}/exports/{target}/retry [post]
func (r *V1) retryExport(ctx *fiber.Ctx) error {
	invoiceID, target, ok := r.exportParams(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	record, err := r.exp.RetryExport(ctx.UserContext(), invoiceID, target)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "no export found for invoice")
		}
		if errors.Is(err, errs.ErrValidation) {
			return errorResponse(ctx, http.StatusBadRequest, err.Error())
		}
		r.logger.Error(err, "restapi - v1 - retryExport")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewExportRecord(record))
}

// @Summary 	Get export status
// @Description Returns all export records for the invoice across target systems, newest first
// @Tags 		exports
// @Produce 	json
// @Param 		id path string true "Invoice ID(uuid)"
// @Success 	200 {array}  response.ExportRecord
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/invoices/{id}/exports [get]
func (r *V1) getExportStatus(ctx *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	records, err := r.exp.GetExportStatus(ctx.UserContext(), invoiceID)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - getExportStatus")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewExportRecords(records))
}

// @Summary 	Get export audit trail
// @Description Returns the audit entries written for the invoice's export transitions, newest first
// @Tags 		exports
// @Produce 	json
// @Param 		id path string true "Invoice ID(uuid)"
// @Success 	200 {array}  response.AuditEntry
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/invoices/{id}/audit [get]
func (r *V1) getAuditTrail(ctx *fiber.Ctx) error {
	invoiceID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	entries, err := r.exp.GetAuditTrail(ctx.UserContext(), invoiceID)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - getAuditTrail")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.NewAuditEntries(entries))
}

func (r *V1) exportParams(ctx *fiber.Ctx) (uuid.UUID, string, bool) {
	invoiceID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, "", false
	}

	target := ctx.Params("target")
	if target == "" {
		return uuid.Nil, "", false
	}

	return invoiceID, target, true
}
