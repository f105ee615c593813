package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusClaimed  TicketStatus = "CLAIMED"
	TicketStatusClosed   TicketStatus = "CLOSED"
	TicketStatusResolved TicketStatus = "RESOLVED"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusClaimed, TicketStatusClosed, TicketStatusResolved:
		return true
	}
	return false
}

// IsTerminal is true for CLOSED and RESOLVED.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusResolved
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is one support interaction bound to a private channel.
type Ticket struct {
	ID                   string
	TicketNumber         string
	GuildID              string
	CategoryID           *string
	RequesterID          string
	RequesterDisplayName string
	ChannelID            string

	Status      TicketStatus
	Priority    TicketPriority
	Subject     string
	Description *string
	CloseReason *string
	Archived    bool

	ClaimedByID  *string
	ClaimedAt    *time.Time
	ClosedByID   *string
	ClosedAt     *time.Time
	ArchivedByID *string
	ArchivedAt   *time.Time
	DeletedByID  *string
	DeletedAt    *time.Time

	RatingRequestedAt   *time.Time
	FinalizedAt         *time.Time
	ScheduledDeletionAt *time.Time
	ChannelDeletedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDeleted reports whether the ticket has been soft-deleted.
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}

// ChannelRemoved reports whether the sweep has already deleted the ticket's channel.
func (t *Ticket) ChannelRemoved() bool {
	return t.ChannelDeletedAt != nil
}

// StateFingerprint is the persisted projection a conditional write compares against.
type StateFingerprint struct {
	Status         TicketStatus
	Archived       bool
	Deleted        bool
	ChannelDeleted bool
}

// Fingerprint captures the current stored state of t.
func (t *Ticket) Fingerprint() StateFingerprint {
	return StateFingerprint{
		Status:         t.Status,
		Archived:       t.Archived,
		Deleted:        t.DeletedAt != nil,
		ChannelDeleted: t.ChannelDeletedAt != nil,
	}
}

// TicketStats summarizes the non-deleted tickets of a guild.
type TicketStats struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Claimed  int `json:"claimed"`
	Closed   int `json:"closed"`
	Resolved int `json:"resolved"`
	Archived int `json:"archived"`
}
