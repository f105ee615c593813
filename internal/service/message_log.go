package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const maxLoggedMessageLength = 4000

// IncomingMessage is a chat message observed in some channel.
type IncomingMessage struct {
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	AuthorRoles []string
	Content     string
}

// MessageLog keeps the append-only audit log of ticket channel messages.
type MessageLog struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	resolver *CategoryResolver
}

// NewMessageLog constructs the log.
func NewMessageLog(tickets repository.TicketRepository, messages repository.TicketMessageRepository, resolver *CategoryResolver) *MessageLog {
	return &MessageLog{tickets: tickets, messages: messages, resolver: resolver}
}

// Record appends msg when it was posted in an active ticket channel. It
// reports whether anything was stored.
func (l *MessageLog) Record(ctx context.Context, msg IncomingMessage) (bool, error) {
	if msg.AuthorIsBot || strings.TrimSpace(msg.Content) == "" {
		return false, nil
	}
	ticket, err := l.tickets.GetByChannel(ctx, msg.ChannelID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewPersistenceFailure("load ticket", err)
	}

	body := msg.Content
	if len(body) > maxLoggedMessageLength {
		body = body[:maxLoggedMessageLength]
	}
	record := &domain.TicketMessage{
		TicketID:      ticket.ID,
		AuthorID:      msg.AuthorID,
		AuthorName:    msg.AuthorName,
		AuthorIsStaff: l.isStaff(ctx, ticket, msg),
		Body:          body,
	}
	if err := l.messages.Create(ctx, record); err != nil {
		return false, apperrors.NewPersistenceFailure("log ticket message", err)
	}
	return true, nil
}

// List returns logged messages of a ticket, oldest first.
func (l *MessageLog) List(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketMessage, error) {
	msgs, err := l.messages.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("list ticket messages", err)
	}
	return msgs, nil
}

func (l *MessageLog) isStaff(ctx context.Context, ticket *domain.Ticket, msg IncomingMessage) bool {
	if msg.AuthorID == ticket.RequesterID {
		return false
	}
	if ticket.ClaimedByID != nil && *ticket.ClaimedByID == msg.AuthorID {
		return true
	}
	supportRole := ""
	if res, err := l.resolver.Resolve(ctx, ticket.GuildID, nil, nil); err == nil {
		supportRole = res.SupportRoleID
	}
	if ticket.CategoryID != nil {
		if category, err := l.resolver.lookup(ctx, *ticket.CategoryID); err == nil && category.SupportRoleID != "" {
			supportRole = category.SupportRoleID
		}
	}
	if supportRole == "" {
		return false
	}
	for _, role := range msg.AuthorRoles {
		if role == supportRole {
			return true
		}
	}
	return false
}
