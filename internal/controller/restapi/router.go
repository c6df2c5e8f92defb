package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"github.com/mgrimsby/property-ops/config"
	v1 "github.com/mgrimsby/property-ops/internal/controller/restapi/v1"
	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
)

// @title Property operations - accounting export
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewRouter(app *fiber.App, cfg *config.Config, exp usecase.ExportUseCase, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewExportRoutes(apiV1Group, exp, l)
	}
}
