// Package conversation provides the conversation orchestration bounded
// context module: webhook intake, AI provider execution, and human takeover
// pauses.
package conversation

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"battbot_backend/internal/conversation/engine"
	"battbot_backend/internal/conversation/handler"
	"battbot_backend/internal/conversation/repository"
	"battbot_backend/internal/conversation/service"
	"battbot_backend/internal/conversation/tools"
	apphttp "battbot_backend/internal/http"
	"battbot_backend/platform/config"
	"battbot_backend/platform/logger"
	"battbot_backend/platform/redislock"
)

// Module is the conversation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// Deps collects the collaborators the conversation module is wired with.
type Deps struct {
	Pool     *pgxpool.Pool
	Locker   *redislock.Locker
	Board    service.BoardClient
	Catalog  tools.CatalogService
	Leads    tools.LeadClient
	Enqueuer service.Enqueuer
	AICfg    config.AIProviderConfig
	SBCfg    config.SupportBoardConfig
	Log      *logger.Logger
}

// NewModule creates and initializes the conversation module.
func NewModule(d Deps) (*Module, error) {
	repo := repository.New(d.Pool)

	registry, err := tools.NewRegistry(d.Catalog, repo, d.Leads, d.Log, tools.Config{
		HumanTakeoverPause: d.AICfg.GetHumanTakeoverPause(),
		EnableLeadTools:    d.AICfg.LeadToolsEnabled(),
	})
	if err != nil {
		return nil, fmt.Errorf("conversation tools: %w", err)
	}

	factory := engine.NewFactory(d.AICfg, registry, repo, d.Log)
	svc := service.New(repo, d.Locker, factory, d.Board, d.Enqueuer, d.AICfg, d.SBCfg.GetSupportBoardAgentIDs(), d.Log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conversation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/conversations/webhook", m.handler.Webhook)

	adminGroup := ctx.Admin.Group("/conversations")
	adminGroup.GET("/:id/pause", m.handler.GetPause)
	adminGroup.PUT("/:id/pause", m.handler.Pause)
	adminGroup.DELETE("/:id/pause", m.handler.Unpause)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
