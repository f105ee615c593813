package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// TicketRating is the requester's feedback on a closed ticket.
type TicketRating struct {
	ID          string
	TicketID    string
	RaterUserID string
	Rating      int
	Feedback    *string
	CreatedAt   time.Time
}
