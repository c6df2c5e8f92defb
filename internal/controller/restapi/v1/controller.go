package v1

import (
	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
)

type V1 struct {
	exp    usecase.ExportUseCase
	logger logger.Interface
}
