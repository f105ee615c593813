package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Templates      *handlers.TemplatesHandler
	Config         *handlers.ConfigHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	guild := app.Group("/api/guilds/:guildId", cfg.AuthMiddleware.Handle, auth.RequireGuildAccess("guildId"))

	tickets := guild.Group("/tickets")
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Post("/bulk", cfg.Tickets.Bulk)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/finalize", cfg.Tickets.Finalize)

	categories := guild.Group("/categories")
	categories.Get("/", cfg.Categories.List)
	categories.Post("/", cfg.Categories.Create)
	categories.Get("/:id", cfg.Categories.Get)
	categories.Put("/:id", cfg.Categories.Update)
	categories.Delete("/:id", cfg.Categories.Delete)

	templates := guild.Group("/templates")
	templates.Get("/", cfg.Templates.List)
	templates.Post("/", cfg.Templates.Create)
	templates.Get("/:id", cfg.Templates.Get)
	templates.Put("/:id", cfg.Templates.Update)
	templates.Delete("/:id", cfg.Templates.Delete)
	templates.Post("/:id/render", cfg.Templates.Render)

	guild.Get("/config", cfg.Config.Get)
	guild.Patch("/config", cfg.Config.Update)
	guild.Post("/panel", cfg.Config.PublishPanel)
}
