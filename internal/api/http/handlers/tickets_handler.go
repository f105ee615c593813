package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/api/dto"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const detailMessageLimit = 100

// TicketsHandler serves the dashboard's ticket endpoints.
type TicketsHandler struct {
	tickets    *service.TicketService
	provision  *service.Provisioner
	categories *service.CategoryService
	messages   *service.MessageLog
	ratings    *service.RatingGate
	audit      *service.AuditService
	bulk       *service.BulkOperator
}

// TicketsHandlerDeps bundles the services the handler calls.
type TicketsHandlerDeps struct {
	Tickets     *service.TicketService
	Provisioner *service.Provisioner
	Categories  *service.CategoryService
	Messages    *service.MessageLog
	Ratings     *service.RatingGate
	Audit       *service.AuditService
	Bulk        *service.BulkOperator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(deps TicketsHandlerDeps) *TicketsHandler {
	return &TicketsHandler{
		tickets:    deps.Tickets,
		provision:  deps.Provisioner,
		categories: deps.Categories,
		messages:   deps.Messages,
		ratings:    deps.Ratings,
		audit:      deps.Audit,
		bulk:       deps.Bulk,
	}
}

// List GET /api/guilds/:guildId/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()
	guildID := c.Params("guildId")
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(ctx, guildID, filter)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(ctx, guildID)
	if err != nil {
		return err
	}
	categories, err := h.categories.List(ctx, guildID, false)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketListResponse{
		Tickets:    dto.NewTicketResponses(tickets),
		Stats:      stats,
		Categories: dto.NewCategoryResponses(categories),
	})
}

// Create POST /api/guilds/:guildId/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.provision.Provision(c.UserContext(), service.ProvisionRequest{
		GuildID:       c.Params("guildId"),
		RequesterID:   req.RequesterID,
		RequesterName: req.RequesterName,
		CategoryID:    req.CategoryID,
		TemplateID:    req.TemplateID,
		TemplateVars:  req.TemplateVars,
		Subject:       req.Subject,
		Description:   req.Description,
		Priority:      domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketResponse(ticket))
}

// Get GET /api/guilds/:guildId/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ticket, err := h.tickets.Get(ctx, c.Params("guildId"), c.Params("id"))
	if err != nil {
		return err
	}
	msgs, err := h.messages.List(ctx, ticket.ID, detailMessageLimit, 0)
	if err != nil {
		return err
	}
	rating, err := h.ratings.Rating(ctx, ticket.ID)
	if err != nil {
		return err
	}
	history, err := h.audit.History(ctx, ticket.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetailResponse(ticket, msgs, rating, history))
}

// Update PATCH /api/guilds/:guildId/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	guildID, id := c.Params("guildId"), c.Params("id")

	var (
		ticket     *domain.Ticket
		transcript *service.TranscriptResult
	)
	switch req.Action {
	case dto.ActionClaim:
		ticket, err = h.tickets.Claim(ctx, guildID, id, actor)
	case dto.ActionUnclaim:
		ticket, err = h.tickets.Unclaim(ctx, guildID, id, actor)
	case dto.ActionClose, dto.ActionResolve:
		var result *service.CloseResult
		if req.Action == dto.ActionClose {
			result, err = h.tickets.Close(ctx, guildID, id, actor, req.Reason)
		} else {
			result, err = h.tickets.Resolve(ctx, guildID, id, actor, req.Reason)
		}
		if result != nil {
			ticket, transcript = result.Ticket, result.Transcript
		}
	case dto.ActionReopen:
		ticket, err = h.tickets.Reopen(ctx, guildID, id, actor)
	case dto.ActionArchive:
		ticket, err = h.tickets.Archive(ctx, guildID, id, actor)
	case dto.ActionUnarchive:
		ticket, err = h.tickets.Unarchive(ctx, guildID, id, actor)
	case dto.ActionUpdatePriority:
		if req.Priority == "" {
			return apperrors.NewValidationError("validation failed", map[string]any{"priority": "is required"})
		}
		ticket, err = h.tickets.UpdatePriority(ctx, guildID, id, actor, domain.TicketPriority(req.Priority))
	case dto.ActionUpdateDetails:
		ticket, err = h.tickets.UpdateDetails(ctx, guildID, id, actor, service.TicketDetailsPatch{
			Subject:     req.Subject,
			Description: req.Description,
			CloseReason: req.CloseReason,
		})
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketActionResponse{Ticket: dto.NewTicketResponse(ticket), Transcript: transcript})
}

// Delete DELETE /api/guilds/:guildId/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := operatorID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Delete(c.UserContext(), c.Params("guildId"), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// Bulk POST /api/guilds/:guildId/tickets/bulk.
func (h *TicketsHandler) Bulk(c *fiber.Ctx) error {
	actor, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.BulkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.bulk.Apply(c.UserContext(), c.Params("guildId"), req.CategoryID, service.BulkAction(req.Action), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// Finalize POST /api/guilds/:guildId/tickets/:id/finalize.
func (h *TicketsHandler) Finalize(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ticket, err := h.tickets.Get(ctx, c.Params("guildId"), c.Params("id"))
	if err != nil {
		return err
	}
	finalized, err := h.ratings.Finalize(ctx, ticket.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(finalized))
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{
		CategoryID:  optionalQuery(c, "category_id"),
		RequesterID: optionalQuery(c, "requester_id"),
		ClaimedByID: optionalQuery(c, "claimed_by_id"),
		SearchTerm:  optionalQuery(c, "search"),
		Limit:       c.QueryInt("limit", 50),
		Offset:      c.QueryInt("offset", 0),
	}
	for _, s := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(strings.ToUpper(s))
		if !status.IsValid() {
			return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": s})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(strings.ToUpper(p))
		if !priority.IsValid() {
			return filter, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("archived must be a boolean", nil)
		}
		filter.Archived = &archived
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		return filter, apperrors.NewValidationError("limit must be between 1 and 200", nil)
	}
	if filter.Offset < 0 {
		return filter, apperrors.NewValidationError("offset must not be negative", nil)
	}
	return filter, nil
}
