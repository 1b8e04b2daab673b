// Package catalog provides the battery catalog bounded context module.
package catalog

import (
	"battbot_backend/internal/catalog/handler"
	"battbot_backend/internal/catalog/repository"
	"battbot_backend/internal/catalog/service"
	apphttp "battbot_backend/internal/http"
	"battbot_backend/platform/logger"
	"battbot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Read-only endpoints
	ctx.V1.GET("/catalog/batteries", m.handler.ListBatteries)
	ctx.V1.GET("/catalog/batteries/search", m.handler.SearchBatteries)
	ctx.V1.GET("/catalog/batteries/:id", m.handler.GetBatteryByID)
	ctx.V1.GET("/catalog/fitments", m.handler.ListFitments)
	ctx.V1.GET("/catalog/financing/plans", m.handler.ComputeFinancing)

	// Operational CRUD endpoints
	adminGroup := ctx.Admin.Group("/catalog")
	adminGroup.PUT("/batteries", m.handler.UpsertBattery)
	adminGroup.DELETE("/batteries/:id", m.handler.DeleteBattery)

	adminGroup.POST("/fitments", m.handler.CreateFitment)
	adminGroup.DELETE("/fitments/:id", m.handler.DeleteFitment)
	adminGroup.POST("/fitments/:id/batteries", m.handler.LinkBattery)
	adminGroup.DELETE("/fitments/:id/batteries/:batteryId", m.handler.UnlinkBattery)

	adminGroup.GET("/financing-rules", m.handler.ListFinancingRules)
	adminGroup.PUT("/financing-rules", m.handler.UpsertFinancingRule)
	adminGroup.PUT("/financing-rules/replace", m.handler.ReplaceFinancingRules)
	adminGroup.DELETE("/financing-rules/:id", m.handler.DeleteFinancingRule)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
