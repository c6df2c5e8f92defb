package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
)

func NewExportRoutes(apiV1Group fiber.Router, exp usecase.ExportUseCase, l logger.Interface) {
	r := &V1{exp: exp, logger: l}

	{
		apiV1Group.Post("/invoices/:id/exports/:target", r.queueExport)
		apiV1Group.Post("/invoices/:id/exports/:target/retry", r.retryExport)
		apiV1Group.Get("/invoices/:id/exports", r.getExportStatus)
		apiV1Group.Get("/invoices/:id/audit", r.getAuditTrail)
	}
}
