package domain

import "time"

// TicketChangeType captures which lifecycle event a history entry records.
type TicketChangeType string

const (
	ChangeTypeCreated   TicketChangeType = "CREATED"
	ChangeTypeStatus    TicketChangeType = "STATUS_CHANGE"
	ChangeTypePriority  TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeDetails   TicketChangeType = "DETAILS_CHANGE"
	ChangeTypeRated     TicketChangeType = "RATED"
	ChangeTypeFinalized TicketChangeType = "FINALIZED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ActorID    *string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
