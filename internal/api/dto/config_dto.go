package dto

import (
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
)

// UpdateConfigRequest is a partial guild configuration update.
type UpdateConfigRequest struct {
	ChannelContainerID  *string `json:"channel_container_id"`
	SupportRoleID       *string `json:"support_role_id"`
	TranscriptChannelID *string `json:"transcript_channel_id"`
	ArchiveContainerID  *string `json:"archive_container_id"`
	AutoCloseHours      *int    `json:"auto_close_hours" validate:"omitempty,gte=0,lte=720"`
	MaxOpenTickets      *int    `json:"max_open_tickets" validate:"omitempty,gte=0,lte=50"`
	WelcomeMessage      *string `json:"welcome_message" validate:"omitempty,max=2000"`
	PanelTitle          *string `json:"panel_title" validate:"omitempty,max=256"`
	PanelDescription    *string `json:"panel_description" validate:"omitempty,max=4000"`
	PanelColor          *int    `json:"panel_color" validate:"omitempty,gte=0,lte=16777215"`
}

// Patch converts the request.
func (r UpdateConfigRequest) Patch() service.GuildConfigPatch {
	return service.GuildConfigPatch{
		ChannelContainerID:  r.ChannelContainerID,
		SupportRoleID:       r.SupportRoleID,
		TranscriptChannelID: r.TranscriptChannelID,
		ArchiveContainerID:  r.ArchiveContainerID,
		AutoCloseHours:      r.AutoCloseHours,
		MaxOpenTickets:      r.MaxOpenTickets,
		WelcomeMessage:      r.WelcomeMessage,
		PanelTitle:          r.PanelTitle,
		PanelDescription:    r.PanelDescription,
		PanelColor:          r.PanelColor,
	}
}

// ConfigResponse is the guild configuration.
type ConfigResponse struct {
	GuildID             string    `json:"guild_id"`
	ChannelContainerID  string    `json:"channel_container_id"`
	SupportRoleID       string    `json:"support_role_id"`
	TranscriptChannelID string    `json:"transcript_channel_id"`
	ArchiveContainerID  string    `json:"archive_container_id"`
	AutoCloseHours      int       `json:"auto_close_hours"`
	MaxOpenTickets      int       `json:"max_open_tickets"`
	WelcomeMessage      string    `json:"welcome_message"`
	PanelTitle          string    `json:"panel_title"`
	PanelDescription    string    `json:"panel_description"`
	PanelColor          int       `json:"panel_color"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewConfigResponse converts a guild configuration.
func NewConfigResponse(c *domain.GuildConfig) ConfigResponse {
	return ConfigResponse{
		GuildID:             c.GuildID,
		ChannelContainerID:  c.ChannelContainerID,
		SupportRoleID:       c.SupportRoleID,
		TranscriptChannelID: c.TranscriptChannelID,
		ArchiveContainerID:  c.ArchiveContainerID,
		AutoCloseHours:      c.AutoCloseHours,
		MaxOpenTickets:      c.MaxOpenTickets,
		WelcomeMessage:      c.WelcomeMessage,
		PanelTitle:          c.PanelTitle,
		PanelDescription:    c.PanelDescription,
		PanelColor:          c.PanelColor,
		UpdatedAt:           c.UpdatedAt,
	}
}

// PublishPanelRequest selects where the ticket panel is posted.
type PublishPanelRequest struct {
	ChannelID string `json:"channel_id" validate:"required"`
}

// PublishPanelResponse reports the posted panel message.
type PublishPanelResponse struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}
