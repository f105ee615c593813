package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/events"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

// AuditService turns domain events into ticket history rows.
type AuditService struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, history repository.TicketHistoryRepository, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, history: history, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handle)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handle)
	a.dispatcher.Subscribe(events.EventTicketPriorityChanged, a.handle)
	a.dispatcher.Subscribe(events.EventTicketDetailsChanged, a.handle)
	a.dispatcher.Subscribe(events.EventTicketRated, a.handle)
	a.dispatcher.Subscribe(events.EventTicketFinalized, a.handle)
}

// History lists a ticket's audit trail.
func (a *AuditService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	return a.history.ListByTicket(ctx, ticketID)
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	entry := historyEntry(event)
	if entry == nil {
		return nil
	}
	a.logger.Debug("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return a.history.Create(ctx, entry)
}

func historyEntry(event events.Event) *domain.TicketHistory {
	entry := &domain.TicketHistory{
		TicketID:  event.TicketID,
		ActorID:   event.ActorID,
		CreatedAt: event.Timestamp,
	}
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue = map[string]any{
			"ticket_number": p.TicketNumber,
			"channel_id":    p.ChannelID,
			"priority":      p.Priority,
			"subject":       p.Subject,
		}
	case events.TicketStatusChangedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"state": p.From}
		entry.NewValue = map[string]any{"state": p.To, "transition": p.Transition}
		if p.Reason != nil {
			entry.NewValue["reason"] = *p.Reason
		}
	case events.TicketPriorityChangedPayload:
		entry.ChangeType = domain.ChangeTypePriority
		entry.OldValue = map[string]any{"priority": p.OldPriority}
		entry.NewValue = map[string]any{"priority": p.NewPriority}
	case events.TicketDetailsChangedPayload:
		entry.ChangeType = domain.ChangeTypeDetails
		entry.OldValue = p.Old
		entry.NewValue = p.New
	case events.TicketRatedPayload:
		entry.ChangeType = domain.ChangeTypeRated
		entry.NewValue = map[string]any{"rating": p.Rating}
		if p.Feedback != nil {
			entry.NewValue["feedback"] = *p.Feedback
		}
	case events.TicketFinalizedPayload:
		entry.ChangeType = domain.ChangeTypeFinalized
		entry.NewValue = map[string]any{"scheduled_deletion_at": p.ScheduledDeletionAt}
	default:
		return nil
	}
	return entry
}
