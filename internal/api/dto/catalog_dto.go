package dto

import (
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
)

// CategoryRequest creates or replaces a category.
type CategoryRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=100"`
	Emoji              string   `json:"emoji" validate:"max=64"`
	ChannelContainerID string   `json:"channel_container_id"`
	SupportRoleID      string   `json:"support_role_id"`
	RequiredRoleIDs    []string `json:"required_role_ids" validate:"max=25"`
	AutoResponse       string   `json:"auto_response" validate:"max=2000"`
	IsActive           *bool    `json:"is_active"`
}

// Input converts the request; categories are active unless stated otherwise.
func (r CategoryRequest) Input() service.CategoryInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.CategoryInput{
		Name:               r.Name,
		Emoji:              r.Emoji,
		ChannelContainerID: r.ChannelContainerID,
		SupportRoleID:      r.SupportRoleID,
		RequiredRoleIDs:    r.RequiredRoleIDs,
		AutoResponse:       r.AutoResponse,
		IsActive:           active,
	}
}

// CategoryResponse is the dashboard view of a category.
type CategoryResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Emoji              string    `json:"emoji"`
	ChannelContainerID string    `json:"channel_container_id"`
	SupportRoleID      string    `json:"support_role_id"`
	RequiredRoleIDs    []string  `json:"required_role_ids"`
	AutoResponse       string    `json:"auto_response"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewCategoryResponse converts a domain category.
func NewCategoryResponse(c *domain.TicketCategory) CategoryResponse {
	roles := c.RequiredRoleIDs
	if roles == nil {
		roles = []string{}
	}
	return CategoryResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Emoji:              c.Emoji,
		ChannelContainerID: c.ChannelContainerID,
		SupportRoleID:      c.SupportRoleID,
		RequiredRoleIDs:    roles,
		AutoResponse:       c.AutoResponse,
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// NewCategoryResponses converts a list of categories.
func NewCategoryResponses(categories []domain.TicketCategory) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, NewCategoryResponse(&categories[i]))
	}
	return out
}

// TemplateRequest creates or replaces a template.
type TemplateRequest struct {
	CategoryID      *string `json:"category_id"`
	Name            string  `json:"name" validate:"required,min=1,max=100"`
	Subject         string  `json:"subject" validate:"required,max=200"`
	DescriptionText string  `json:"description_text" validate:"max=4000"`
	IsActive        *bool   `json:"is_active"`
}

// Input converts the request; templates are active unless stated otherwise.
func (r TemplateRequest) Input() service.TemplateInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.TemplateInput{
		CategoryID:      r.CategoryID,
		Name:            r.Name,
		Subject:         r.Subject,
		DescriptionText: r.DescriptionText,
		IsActive:        active,
	}
}

// RenderTemplateRequest previews a template with variables.
type RenderTemplateRequest struct {
	Variables     map[string]string `json:"variables"`
	RequesterName string            `json:"requester_name" validate:"max=100"`
}

// RenderTemplateResponse is a rendered preview.
type RenderTemplateResponse struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// TemplateResponse is the dashboard view of a template.
type TemplateResponse struct {
	ID              string    `json:"id"`
	CategoryID      *string   `json:"category_id"`
	Name            string    `json:"name"`
	Subject         string    `json:"subject"`
	DescriptionText string    `json:"description_text"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewTemplateResponse converts a domain template.
func NewTemplateResponse(t *domain.TicketTemplate) TemplateResponse {
	return TemplateResponse{
		ID:              t.ID,
		CategoryID:      t.CategoryID,
		Name:            t.Name,
		Subject:         t.Subject,
		DescriptionText: t.DescriptionText,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewTemplateResponses converts a list of templates.
func NewTemplateResponses(templates []domain.TicketTemplate) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, NewTemplateResponse(&templates[i]))
	}
	return out
}
