package events

import (
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketDetailsChanged  EventType = "ticket_details_changed"
	EventTicketRated           EventType = "ticket_rated"
	EventTicketFinalized       EventType = "ticket_finalized"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	GuildID   string    `json:"guild_id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	CategoryID   *string               `json:"category_id,omitempty"`
	ChannelID    string                `json:"channel_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Subject      string                `json:"subject"`
}

// TicketStatusChangedPayload carries the lifecycle labels before and after a
// transition, e.g. "open" to "claimed".
type TicketStatusChangedPayload struct {
	Transition domain.Transition `json:"transition"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Reason     *string           `json:"reason,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketDetailsChangedPayload records edited fields with their old and new values.
type TicketDetailsChangedPayload struct {
	Old map[string]any `json:"old"`
	New map[string]any `json:"new"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback,omitempty"`
}

// TicketFinalizedPayload payload.
type TicketFinalizedPayload struct {
	ScheduledDeletionAt time.Time `json:"scheduled_deletion_at"`
}
