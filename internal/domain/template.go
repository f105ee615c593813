package domain

import "time"

// TicketTemplate is a reusable subject/description pattern. A nil CategoryID
// makes the template available to every category.
type TicketTemplate struct {
	ID              string
	GuildID         string
	CategoryID      *string
	Name            string
	Subject         string
	DescriptionText string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
