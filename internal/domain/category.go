package domain

import "time"

// TicketCategory is a named ticket type with its own routing, eligibility
// and auto-response rules.
type TicketCategory struct {
	ID                 string
	GuildID            string
	Name               string
	Emoji              string
	ChannelContainerID string
	SupportRoleID      string
	RequiredRoleIDs    []string
	AutoResponse       string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AllowsRoles reports whether a member holding roles may open a ticket in c.
// Categories without required roles are open to everyone.
func (c *TicketCategory) AllowsRoles(roles []string) bool {
	if len(c.RequiredRoleIDs) == 0 {
		return true
	}
	held := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		held[role] = struct{}{}
	}
	for _, required := range c.RequiredRoleIDs {
		if _, ok := held[required]; ok {
			return true
		}
	}
	return false
}
