package dto

import (
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
)

// Ticket PATCH actions.
const (
	ActionClaim          = "claim"
	ActionUnclaim        = "unclaim"
	ActionClose          = "close"
	ActionResolve        = "resolve"
	ActionReopen         = "reopen"
	ActionArchive        = "archive"
	ActionUnarchive      = "unarchive"
	ActionUpdatePriority = "update_priority"
	ActionUpdateDetails  = "update_details"
)

// CreateTicketRequest opens a ticket on behalf of a guild member.
type CreateTicketRequest struct {
	RequesterID   string            `json:"requester_id" validate:"required"`
	RequesterName string            `json:"requester_name" validate:"max=100"`
	CategoryID    *string           `json:"category_id"`
	TemplateID    *string           `json:"template_id"`
	TemplateVars  map[string]string `json:"template_vars"`
	Subject       string            `json:"subject" validate:"max=200"`
	Description   *string           `json:"description" validate:"omitempty,max=4000"`
	Priority      string            `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

// UpdateTicketRequest drives one lifecycle action or edit.
type UpdateTicketRequest struct {
	Action      string  `json:"action" validate:"required,oneof=claim unclaim close resolve reopen archive unarchive update_priority update_details"`
	Reason      *string `json:"reason" validate:"omitempty,max=1000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Subject     *string `json:"subject" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	CloseReason *string `json:"close_reason" validate:"omitempty,max=1000"`
}

// BulkRequest applies one action to every ticket of a category.
type BulkRequest struct {
	Action     string `json:"action" validate:"required,oneof=archive delete"`
	CategoryID string `json:"category_id" validate:"required"`
}

// TicketResponse is the dashboard view of a ticket.
type TicketResponse struct {
	ID                   string                `json:"id"`
	TicketNumber         string                `json:"ticket_number"`
	GuildID              string                `json:"guild_id"`
	CategoryID           *string               `json:"category_id"`
	RequesterID          string                `json:"requester_id"`
	RequesterDisplayName string                `json:"requester_display_name"`
	ChannelID            string                `json:"channel_id"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	Subject              string                `json:"subject"`
	Description          *string               `json:"description"`
	CloseReason          *string               `json:"close_reason"`
	Archived             bool                  `json:"archived"`
	ClaimedByID          *string               `json:"claimed_by_id"`
	ClaimedAt            *time.Time            `json:"claimed_at"`
	ClosedByID           *string               `json:"closed_by_id"`
	ClosedAt             *time.Time            `json:"closed_at"`
	ArchivedByID         *string               `json:"archived_by_id"`
	ArchivedAt           *time.Time            `json:"archived_at"`
	DeletedByID          *string               `json:"deleted_by_id,omitempty"`
	DeletedAt            *time.Time            `json:"deleted_at,omitempty"`
	FinalizedAt          *time.Time            `json:"finalized_at"`
	ScheduledDeletionAt  *time.Time            `json:"scheduled_deletion_at"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// TicketListResponse bundles the dashboard's ticket page.
type TicketListResponse struct {
	Tickets    []TicketResponse   `json:"tickets"`
	Stats      domain.TicketStats `json:"stats"`
	Categories []CategoryResponse `json:"categories"`
}

// TicketDetailResponse adds the audit trail to a ticket.
type TicketDetailResponse struct {
	Ticket   TicketResponse          `json:"ticket"`
	Messages []TicketMessageResponse `json:"messages"`
	Rating   *RatingResponse         `json:"rating"`
	History  []HistoryResponse       `json:"history"`
}

// TicketActionResponse is returned by PATCH; Transcript is set for close and resolve.
type TicketActionResponse struct {
	Ticket     TicketResponse            `json:"ticket"`
	Transcript *service.TranscriptResult `json:"transcript,omitempty"`
}

// TicketMessageResponse is one logged channel message.
type TicketMessageResponse struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorIsStaff bool      `json:"author_is_staff"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

// RatingResponse is the requester's feedback.
type RatingResponse struct {
	Rating    int       `json:"rating"`
	Feedback  *string   `json:"feedback"`
	RaterID   string    `json:"rater_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ChangeType domain.TicketChangeType `json:"change_type"`
	ActorID    *string                 `json:"actor_id"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                   t.ID,
		TicketNumber:         t.TicketNumber,
		GuildID:              t.GuildID,
		CategoryID:           t.CategoryID,
		RequesterID:          t.RequesterID,
		RequesterDisplayName: t.RequesterDisplayName,
		ChannelID:            t.ChannelID,
		Status:               t.Status,
		Priority:             t.Priority,
		Subject:              t.Subject,
		Description:          t.Description,
		CloseReason:          t.CloseReason,
		Archived:             t.Archived,
		ClaimedByID:          t.ClaimedByID,
		ClaimedAt:            t.ClaimedAt,
		ClosedByID:           t.ClosedByID,
		ClosedAt:             t.ClosedAt,
		ArchivedByID:         t.ArchivedByID,
		ArchivedAt:           t.ArchivedAt,
		DeletedByID:          t.DeletedByID,
		DeletedAt:            t.DeletedAt,
		FinalizedAt:          t.FinalizedAt,
		ScheduledDeletionAt:  t.ScheduledDeletionAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

// NewTicketResponses converts a page of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewTicketDetailResponse assembles the detail view.
func NewTicketDetailResponse(t *domain.Ticket, msgs []domain.TicketMessage, rating *domain.TicketRating, history []domain.TicketHistory) TicketDetailResponse {
	resp := TicketDetailResponse{
		Ticket:   NewTicketResponse(t),
		Messages: make([]TicketMessageResponse, 0, len(msgs)),
		History:  make([]HistoryResponse, 0, len(history)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, TicketMessageResponse{
			ID:            m.ID,
			AuthorID:      m.AuthorID,
			AuthorName:    m.AuthorName,
			AuthorIsStaff: m.AuthorIsStaff,
			Body:          m.Body,
			CreatedAt:     m.CreatedAt,
		})
	}
	if rating != nil {
		resp.Rating = &RatingResponse{
			Rating:    rating.Rating,
			Feedback:  rating.Feedback,
			RaterID:   rating.RaterUserID,
			CreatedAt: rating.CreatedAt,
		}
	}
	for _, h := range history {
		resp.History = append(resp.History, HistoryResponse{
			ChangeType: h.ChangeType,
			ActorID:    h.ActorID,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return resp
}
