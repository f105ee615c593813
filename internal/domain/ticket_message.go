package domain

import "time"

// TicketMessage is an append-only audit record of a message posted in a
// ticket channel, kept independently of the live channel history.
type TicketMessage struct {
	ID            string
	TicketID      string
	AuthorID      string
	AuthorName    string
	AuthorIsStaff bool
	Body          string
	CreatedAt     time.Time
}
