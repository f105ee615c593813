package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/api/dto"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
)

// CategoriesHandler serves category CRUD.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List GET /api/guilds/:guildId/categories?active=true.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext(), c.Params("guildId"), c.QueryBool("active", false))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCategoryResponses(categories))
}

func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	category, err := h.categories.Get(c.UserContext(), c.Params("guildId"), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCategoryResponse(category))
}

func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Create(c.UserContext(), c.Params("guildId"), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewCategoryResponse(category))
}

func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Update(c.UserContext(), c.Params("guildId"), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCategoryResponse(category))
}

func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	if err := h.categories.Delete(c.UserContext(), c.Params("guildId"), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TemplatesHandler serves template CRUD and previews.
type TemplatesHandler struct {
	templates *service.TemplateService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templates *service.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

// List GET /api/guilds/:guildId/templates, optionally narrowed by ?category_id=.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()
	guildID := c.Params("guildId")
	var err error
	var templates []domain.TicketTemplate
	if categoryID := optionalQuery(c, "category_id"); categoryID != nil {
		templates, err = h.templates.ListForCategory(ctx, guildID, categoryID)
	} else {
		templates, err = h.templates.List(ctx, guildID)
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTemplateResponses(templates))
}

func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	tpl, err := h.templates.Get(c.UserContext(), c.Params("guildId"), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTemplateResponse(tpl))
}

func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tpl, err := h.templates.Create(c.UserContext(), c.Params("guildId"), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTemplateResponse(tpl))
}

func (h *TemplatesHandler) Update(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tpl, err := h.templates.Update(c.UserContext(), c.Params("guildId"), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTemplateResponse(tpl))
}

func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	if err := h.templates.Delete(c.UserContext(), c.Params("guildId"), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Render POST /api/guilds/:guildId/templates/:id/render.
func (h *TemplatesHandler) Render(c *fiber.Ctx) error {
	var req dto.RenderTemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rendered, err := h.templates.Render(c.UserContext(), c.Params("guildId"), c.Params("id"), req.Variables, req.RequesterName)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.RenderTemplateResponse{Subject: rendered.Subject, Description: rendered.Description})
}

// ConfigHandler serves the guild configuration and panel publishing.
type ConfigHandler struct {
	configs *service.GuildConfigService
	panel   *service.PanelPublisher
}

// NewConfigHandler constructs handler.
func NewConfigHandler(configs *service.GuildConfigService, panel *service.PanelPublisher) *ConfigHandler {
	return &ConfigHandler{configs: configs, panel: panel}
}

func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.configs.Get(c.UserContext(), c.Params("guildId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewConfigResponse(cfg))
}

func (h *ConfigHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateConfigRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cfg, err := h.configs.Update(c.UserContext(), c.Params("guildId"), req.Patch())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewConfigResponse(cfg))
}

func (h *ConfigHandler) PublishPanel(c *fiber.Ctx) error {
	var req dto.PublishPanelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	messageID, err := h.panel.Publish(c.UserContext(), c.Params("guildId"), req.ChannelID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.PublishPanelResponse{ChannelID: req.ChannelID, MessageID: messageID})
}
