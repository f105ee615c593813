// Package app assembles the ticket engine from its stores and collaborators.
package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-engine/internal/api/http"
	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/auth"
	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/events"
	"github.com/spec-kit/ticket-engine/internal/interaction"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/repository"
	"github.com/spec-kit/ticket-engine/internal/service"
)

// Stores exposes every repository the engine needs.
type Stores interface {
	Tickets() repository.TicketRepository
	Categories() repository.CategoryRepository
	Templates() repository.TemplateRepository
	Ratings() repository.RatingRepository
	Messages() repository.TicketMessageRepository
	History() repository.TicketHistoryRepository
	GuildConfigs() repository.GuildConfigRepository
}

type postgresStores struct {
	pool *pgxpool.Pool
}

// NewPostgresStores backs every repository with the same pool.
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return postgresStores{pool: pool}
}

func (s postgresStores) Tickets() repository.TicketRepository {
	return repository.NewTicketRepository(s.pool)
}
func (s postgresStores) Categories() repository.CategoryRepository {
	return repository.NewCategoryRepository(s.pool)
}
func (s postgresStores) Templates() repository.TemplateRepository {
	return repository.NewTemplateRepository(s.pool)
}
func (s postgresStores) Ratings() repository.RatingRepository {
	return repository.NewRatingRepository(s.pool)
}
func (s postgresStores) Messages() repository.TicketMessageRepository {
	return repository.NewTicketMessageRepository(s.pool)
}
func (s postgresStores) History() repository.TicketHistoryRepository {
	return repository.NewTicketHistoryRepository(s.pool)
}
func (s postgresStores) GuildConfigs() repository.GuildConfigRepository {
	return repository.NewGuildConfigRepository(s.pool)
}

// Dependencies are the external pieces the services are built on.
type Dependencies struct {
	Stores    Stores
	Messenger messaging.Messenger
	Ticket    config.TicketConfig
	Clock     clock.Clock
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Services is the assembled engine.
type Services struct {
	Dispatcher   events.Dispatcher
	Configs      *service.GuildConfigService
	Resolver     *service.CategoryResolver
	Categories   *service.CategoryService
	Templates    *service.TemplateService
	Transcripts  *service.TranscriptEngine
	Ratings      *service.RatingGate
	Tickets      *service.TicketService
	Provisioner  *service.Provisioner
	Bulk         *service.BulkOperator
	Audit        *service.AuditService
	Messages     *service.MessageLog
	Panel        *service.PanelPublisher
	Interactions *interaction.Router
}

// NewServices builds the service graph and subscribes the audit trail.
func NewServices(deps Dependencies) *Services {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stores := deps.Stores
	dispatcher := events.NewInMemoryDispatcher(logger)

	configs := service.NewGuildConfigService(stores.GuildConfigs(), deps.Ticket)
	resolver := service.NewCategoryResolver(stores.Categories(), configs,
		service.NewCategoryCache(clk, deps.Ticket.CategoryCacheTTL()))
	templates := service.NewTemplateService(stores.Templates(), stores.Categories(), clk)
	transcripts := service.NewTranscriptEngine(deps.Messenger, stores.Categories(), clk, deps.Metrics, logger,
		deps.Ticket.TranscriptMessageLimit)
	ratings := service.NewRatingGate(stores.Tickets(), stores.Ratings(), configs, deps.Messenger, dispatcher, clk, logger)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  stores.Tickets(),
		Configs:     configs,
		Messenger:   deps.Messenger,
		Transcripts: transcripts,
		RatingGate:  ratings,
		Dispatcher:  dispatcher,
		Metrics:     deps.Metrics,
		Clock:       clk,
		Logger:      logger,
	})
	provisioner := service.NewProvisioner(stores.Tickets(), resolver, templates, deps.Messenger, dispatcher, clk, logger)

	categories := service.NewCategoryService(stores.Categories(), resolver)

	audit := service.NewAuditService(dispatcher, stores.History(), logger)
	audit.RegisterHandlers()

	return &Services{
		Dispatcher:   dispatcher,
		Configs:      configs,
		Resolver:     resolver,
		Categories:   categories,
		Templates:    templates,
		Transcripts:  transcripts,
		Ratings:      ratings,
		Tickets:      tickets,
		Provisioner:  provisioner,
		Bulk:         service.NewBulkOperator(stores.Tickets(), stores.Categories(), tickets, logger),
		Audit:        audit,
		Messages:     service.NewMessageLog(stores.Tickets(), stores.Messages(), resolver),
		Panel:        service.NewPanelPublisher(configs, stores.Categories(), deps.Messenger),
		Interactions: interaction.NewRouter(tickets, ratings, provisioner, resolver, logger),
	}
}

// HTTPOptions configures the dashboard server.
type HTTPOptions struct {
	App     config.AppConfig
	Tokens  *auth.TokenManager
	Health  *handlers.HealthHandler
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewHTTPApp builds the fiber app serving the dashboard API.
func NewHTTPApp(svc *Services, opts HTTPOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, opts.Logger, opts.Metrics, opts.App.RequestTimeout())

	health := opts.Health
	if health == nil {
		health = handlers.NewHealthHandler(opts.App.Name, opts.App.Version, nil)
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: health,
		Tickets: handlers.NewTicketsHandler(handlers.TicketsHandlerDeps{
			Tickets:     svc.Tickets,
			Provisioner: svc.Provisioner,
			Categories:  svc.Categories,
			Messages:    svc.Messages,
			Ratings:     svc.Ratings,
			Audit:       svc.Audit,
			Bulk:        svc.Bulk,
		}),
		Categories:     handlers.NewCategoriesHandler(svc.Categories),
		Templates:      handlers.NewTemplatesHandler(svc.Templates),
		Config:         handlers.NewConfigHandler(svc.Configs, svc.Panel),
		AuthMiddleware: auth.NewAuthMiddleware(opts.Tokens),
	})
	return app
}
