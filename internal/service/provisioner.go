package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/events"
	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const ticketNumberAttempts = 5

const (
	requesterAccess = messaging.PermViewChannel | messaging.PermSendMessages | messaging.PermReadHistory |
		messaging.PermAttachFiles | messaging.PermEmbedLinks
	supportAccess = requesterAccess | messaging.PermManageMessages
)

var priorityColors = map[domain.TicketPriority]int{
	domain.TicketPriorityLow:    0x95A5A6,
	domain.TicketPriorityNormal: 0x3498DB,
	domain.TicketPriorityHigh:   0xE67E22,
	domain.TicketPriorityUrgent: 0xE74C3C,
}

// ProvisionRequest describes a new ticket. When RequesterRoles is nil the
// requester's roles and display name are looked up through the messenger.
type ProvisionRequest struct {
	GuildID        string
	RequesterID    string
	RequesterName  string
	RequesterRoles []string
	CategoryID     *string
	TemplateID     *string
	TemplateVars   map[string]string
	Subject        string
	Description    *string
	Priority       domain.TicketPriority
}

// Provisioner opens tickets: it resolves routing, creates the private
// channel with its access list and persists the ticket.
type Provisioner struct {
	tickets   repository.TicketRepository
	resolver  *CategoryResolver
	templates *TemplateService
	messenger messaging.Messenger
	events    publisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewProvisioner constructs the provisioner.
func NewProvisioner(
	tickets repository.TicketRepository,
	resolver *CategoryResolver,
	templates *TemplateService,
	messenger messaging.Messenger,
	dispatcher events.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *Provisioner {
	return &Provisioner{
		tickets:   tickets,
		resolver:  resolver,
		templates: templates,
		messenger: messenger,
		events:    publisher{dispatcher: dispatcher, clock: clk},
		clock:     clk,
		logger:    logger,
	}
}

// Provision creates a ticket and its channel. Eligibility and setup checks
// run before any side effect.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*domain.Ticket, error) {
	if req.Priority == "" {
		req.Priority = domain.TicketPriorityNormal
	}
	if !req.Priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
	}
	if err := p.fillRequester(ctx, &req); err != nil {
		return nil, err
	}

	res, err := p.resolver.Resolve(ctx, req.GuildID, req.CategoryID, req.RequesterRoles)
	if err != nil {
		return nil, err
	}
	if limit := res.Config.MaxOpenTickets; limit > 0 {
		open, err := p.tickets.CountOpenByRequester(ctx, req.GuildID, req.RequesterID)
		if err != nil {
			return nil, apperrors.NewPersistenceFailure("count open tickets", err)
		}
		if open >= limit {
			return nil, apperrors.NewLimitReached(limit)
		}
	}
	if err := p.applyTemplate(ctx, &req); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if err := p.checkContainer(ctx, req.GuildID, res.ContainerID); err != nil {
		return nil, err
	}
	if res.Category != nil {
		subject = fmt.Sprintf("[%s] %s", res.Category.Name, subject)
	}

	number, err := domain.NewTicketNumber()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	channelID, err := p.messenger.CreateChannel(ctx, messaging.ChannelSpec{
		GuildID:    req.GuildID,
		Name:       TicketChannelName(req.Subject, req.RequesterName, number),
		ParentID:   res.ContainerID,
		Topic:      fmt.Sprintf("Ticket %s: %s", number, subject),
		Overwrites: ticketOverwrites(req.GuildID, req.RequesterID, res.SupportRoleID),
	})
	if err != nil {
		return nil, apperrors.NewExternalDeliveryFailure("create ticket channel", err)
	}

	ticket := &domain.Ticket{
		TicketNumber:         number,
		GuildID:              req.GuildID,
		CategoryID:           req.CategoryID,
		RequesterID:          req.RequesterID,
		RequesterDisplayName: req.RequesterName,
		ChannelID:            channelID,
		Priority:             req.Priority,
		Subject:              subject,
		Description:          trimmedOrNil(req.Description),
	}
	ticket.ApplyState(domain.OpenState{})
	if err := p.persist(ctx, ticket, req); err != nil {
		if delErr := p.messenger.DeleteChannel(ctx, channelID); delErr != nil {
			p.logger.Warn("failed to remove channel of unsaved ticket",
				zap.String("channel_id", channelID), zap.Error(delErr))
		}
		return nil, apperrors.NewPersistenceFailure("save ticket", err)
	}

	p.sendWelcome(ctx, ticket, res)
	p.events.publish(ctx, ticket, req.RequesterID, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		CategoryID:   ticket.CategoryID,
		ChannelID:    ticket.ChannelID,
		Priority:     ticket.Priority,
		Subject:      ticket.Subject,
	})
	p.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("channel_id", ticket.ChannelID))
	return ticket, nil
}

// persist inserts the ticket, drawing a new number on a uniqueness violation.
func (p *Provisioner) persist(ctx context.Context, ticket *domain.Ticket, req ProvisionRequest) error {
	var err error
	for attempt := 1; attempt <= ticketNumberAttempts; attempt++ {
		err = p.tickets.Create(ctx, ticket)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		number, genErr := domain.NewTicketNumber()
		if genErr != nil {
			return genErr
		}
		ticket.TicketNumber = number
		name := TicketChannelName(req.Subject, req.RequesterName, number)
		if renameErr := p.messenger.SetChannelName(ctx, ticket.ChannelID, name); renameErr != nil {
			p.logger.Warn("failed to rename channel after number retry",
				zap.String("channel_id", ticket.ChannelID), zap.Error(renameErr))
		}
	}
	return err
}

func (p *Provisioner) fillRequester(ctx context.Context, req *ProvisionRequest) error {
	if req.RequesterRoles != nil && req.RequesterName != "" {
		return nil
	}
	member, err := p.messenger.Member(ctx, req.GuildID, req.RequesterID)
	if errors.Is(err, messaging.ErrMemberNotFound) {
		return apperrors.NewNotFound("member", map[string]any{"user_id": req.RequesterID})
	}
	if err != nil {
		return apperrors.NewExternalDeliveryFailure("look up requester", err)
	}
	if req.RequesterRoles == nil {
		req.RequesterRoles = member.Roles
	}
	if req.RequesterName == "" {
		req.RequesterName = member.DisplayName
	}
	return nil
}

// applyTemplate fills empty subject and description from the selected template.
func (p *Provisioner) applyTemplate(ctx context.Context, req *ProvisionRequest) error {
	if req.TemplateID == nil {
		return nil
	}
	tpl, err := p.templates.Get(ctx, req.GuildID, *req.TemplateID)
	if err != nil {
		return err
	}
	if !tpl.IsActive || (tpl.CategoryID != nil && (req.CategoryID == nil || *tpl.CategoryID != *req.CategoryID)) {
		return apperrors.NewNotFound("template", map[string]any{"template_id": *req.TemplateID})
	}
	rendered := RenderTemplate(tpl, req.TemplateVars, req.RequesterName, p.clock.Now())
	if strings.TrimSpace(req.Subject) == "" {
		req.Subject = rendered.Subject
	}
	if req.Description == nil || strings.TrimSpace(*req.Description) == "" {
		req.Description = &rendered.Description
	}
	return nil
}

func (p *Provisioner) checkContainer(ctx context.Context, guildID, containerID string) error {
	if containerID == "" {
		return apperrors.NewSupportContainerMissing(guildID)
	}
	container, err := p.messenger.Channel(ctx, containerID)
	if errors.Is(err, messaging.ErrChannelNotFound) || (err == nil && !container.IsContainer) {
		return apperrors.NewSupportContainerMissing(guildID)
	}
	if err != nil {
		return apperrors.NewExternalDeliveryFailure("look up ticket container", err)
	}
	return nil
}

func (p *Provisioner) sendWelcome(ctx context.Context, ticket *domain.Ticket, res *Resolution) {
	description := res.Config.WelcomeMessage
	if res.AutoResponse != "" {
		description += "\n\n" + res.AutoResponse
	}
	category := "General"
	if res.Category != nil {
		category = res.Category.Name
	}
	content := fmt.Sprintf("<@%s>", ticket.RequesterID)
	if res.SupportRoleID != "" {
		content += fmt.Sprintf(" <@&%s>", res.SupportRoleID)
	}
	msg := messaging.OutgoingMessage{
		Content: content,
		Embeds: []messaging.Embed{{
			Title:       fmt.Sprintf("Ticket %s", ticket.TicketNumber),
			Description: description,
			Color:       priorityColors[ticket.Priority],
			Fields: []messaging.EmbedField{
				{Name: "Subject", Value: ticket.Subject},
				{Name: "Category", Value: category, Inline: true},
				{Name: "Status", Value: string(ticket.Status), Inline: true},
				{Name: "Priority", Value: string(ticket.Priority), Inline: true},
			},
			Timestamp: ticket.CreatedAt,
		}},
		Buttons: []messaging.Button{
			{ID: customid.Claim, Label: "Claim", Style: messaging.ButtonPrimary},
			{ID: customid.Close, Label: "Close", Style: messaging.ButtonDanger},
			{ID: customid.Archive, Label: "Archive", Style: messaging.ButtonSecondary},
			{ID: customid.Delete, Label: "Delete", Style: messaging.ButtonDanger},
		},
	}
	if _, err := p.messenger.SendMessage(ctx, ticket.ChannelID, msg); err != nil {
		p.logger.Warn("failed to post welcome message",
			zap.String("ticket_id", ticket.ID),
			zap.Error(apperrors.NewExternalDeliveryFailure("send welcome message", err)))
	}
}

// ticketOverwrites hides the channel from everyone (the guild id doubles as
// the everyone role) and opens it to the requester and support role.
func ticketOverwrites(guildID, requesterID, supportRoleID string) []messaging.Overwrite {
	overwrites := []messaging.Overwrite{
		{ID: guildID, Target: messaging.TargetRole, Deny: messaging.PermViewChannel},
		{ID: requesterID, Target: messaging.TargetMember, Allow: requesterAccess},
	}
	if supportRoleID != "" {
		overwrites = append(overwrites, messaging.Overwrite{ID: supportRoleID, Target: messaging.TargetRole, Allow: supportAccess})
	}
	return overwrites
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
