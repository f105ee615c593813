package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const (
	maxAutoCloseHours = 24 * 30
	maxOpenTicketsCap = 50
)

// GuildConfigService reads and edits the per-guild ticket configuration.
type GuildConfigService struct {
	repo     repository.GuildConfigRepository
	defaults config.TicketConfig
}

// GuildConfigPatch is a partial update; nil fields are left unchanged.
type GuildConfigPatch struct {
	ChannelContainerID  *string
	SupportRoleID       *string
	TranscriptChannelID *string
	ArchiveContainerID  *string
	AutoCloseHours      *int
	MaxOpenTickets      *int
	WelcomeMessage      *string
	PanelTitle          *string
	PanelDescription    *string
	PanelColor          *int
}

// NewGuildConfigService constructs the service.
func NewGuildConfigService(repo repository.GuildConfigRepository, defaults config.TicketConfig) *GuildConfigService {
	return &GuildConfigService{repo: repo, defaults: defaults}
}

// Get returns the saved configuration or the defaults for an unconfigured guild.
func (s *GuildConfigService) Get(ctx context.Context, guildID string) (*domain.GuildConfig, error) {
	cfg, err := s.repo.Get(ctx, guildID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.DefaultGuildConfig(guildID, s.defaults.DefaultAutoCloseHours, s.defaults.DefaultMaxOpen, s.defaults.WelcomeMessage), nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load guild config", err)
	}
	if strings.TrimSpace(cfg.WelcomeMessage) == "" {
		cfg.WelcomeMessage = s.defaults.WelcomeMessage
	}
	return cfg, nil
}

// Update applies patch and upserts the row.
func (s *GuildConfigService) Update(ctx context.Context, guildID string, patch GuildConfigPatch) (*domain.GuildConfig, error) {
	if patch.AutoCloseHours != nil && (*patch.AutoCloseHours < 0 || *patch.AutoCloseHours > maxAutoCloseHours) {
		return nil, apperrors.NewValidationError("auto_close_hours out of range",
			map[string]any{"min": 0, "max": maxAutoCloseHours})
	}
	if patch.MaxOpenTickets != nil && (*patch.MaxOpenTickets < 0 || *patch.MaxOpenTickets > maxOpenTicketsCap) {
		return nil, apperrors.NewValidationError("max_open_tickets out of range",
			map[string]any{"min": 0, "max": maxOpenTicketsCap})
	}
	if patch.PanelColor != nil && (*patch.PanelColor < 0 || *patch.PanelColor > 0xFFFFFF) {
		return nil, apperrors.NewValidationError("panel_color must be a 24-bit RGB value", nil)
	}

	cfg, err := s.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	applyString(&cfg.ChannelContainerID, patch.ChannelContainerID)
	applyString(&cfg.SupportRoleID, patch.SupportRoleID)
	applyString(&cfg.TranscriptChannelID, patch.TranscriptChannelID)
	applyString(&cfg.ArchiveContainerID, patch.ArchiveContainerID)
	applyString(&cfg.WelcomeMessage, patch.WelcomeMessage)
	applyString(&cfg.PanelTitle, patch.PanelTitle)
	applyString(&cfg.PanelDescription, patch.PanelDescription)
	if patch.AutoCloseHours != nil {
		cfg.AutoCloseHours = *patch.AutoCloseHours
	}
	if patch.MaxOpenTickets != nil {
		cfg.MaxOpenTickets = *patch.MaxOpenTickets
	}
	if patch.PanelColor != nil {
		cfg.PanelColor = *patch.PanelColor
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, apperrors.NewPersistenceFailure("save guild config", err)
	}
	return cfg, nil
}

// SetArchiveContainer records a newly created archive container.
func (s *GuildConfigService) SetArchiveContainer(ctx context.Context, guildID, containerID string) error {
	_, err := s.Update(ctx, guildID, GuildConfigPatch{ArchiveContainerID: &containerID})
	return err
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
