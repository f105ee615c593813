package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/events"
)

type publisher struct {
	dispatcher events.Dispatcher
	clock      clock.Clock
}

func (p publisher) publish(ctx context.Context, ticket *domain.Ticket, actorID string, eventType events.EventType, payload any) {
	if p.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		GuildID:   ticket.GuildID,
		Timestamp: p.clock.Now(),
		Payload:   payload,
	}
	if actorID != "" {
		event.ActorID = &actorID
	}
	_ = p.dispatcher.Publish(ctx, event)
}
