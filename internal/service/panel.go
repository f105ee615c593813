package service

import (
	"context"
	"strings"

	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// maxPanelButtons is five rows of five controls.
const maxPanelButtons = 25

// PanelPublisher posts the message members use to open tickets.
type PanelPublisher struct {
	configs    *GuildConfigService
	categories repository.CategoryRepository
	messenger  messaging.Messenger
}

// NewPanelPublisher constructs the publisher.
func NewPanelPublisher(configs *GuildConfigService, categories repository.CategoryRepository, messenger messaging.Messenger) *PanelPublisher {
	return &PanelPublisher{configs: configs, categories: categories, messenger: messenger}
}

// Publish posts the panel into channelID: one button per active category,
// or a single general button when the guild has none.
func (p *PanelPublisher) Publish(ctx context.Context, guildID, channelID string) (string, error) {
	cfg, err := p.configs.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	channel, err := p.messenger.Channel(ctx, channelID)
	if err != nil || channel.GuildID != guildID || channel.IsContainer {
		return "", apperrors.NewNotFound("channel", map[string]any{"channel_id": channelID})
	}
	categories, err := p.categories.ListByGuild(ctx, guildID, true)
	if err != nil {
		return "", apperrors.NewPersistenceFailure("list categories", err)
	}

	var buttons []messaging.Button
	for i := range categories {
		if len(buttons) == maxPanelButtons {
			break
		}
		id := categories[i].ID
		buttons = append(buttons, messaging.Button{
			ID:    customid.Open(&id),
			Label: strings.TrimSpace(categories[i].Emoji + " " + categories[i].Name),
			Style: messaging.ButtonPrimary,
		})
	}
	if len(buttons) == 0 {
		buttons = append(buttons, messaging.Button{
			ID:    customid.Open(nil),
			Label: "Open a ticket",
			Style: messaging.ButtonPrimary,
		})
	}

	messageID, err := p.messenger.SendMessage(ctx, channelID, messaging.OutgoingMessage{
		Embeds: []messaging.Embed{{
			Title:       cfg.PanelTitle,
			Description: cfg.PanelDescription,
			Color:       cfg.PanelColor,
		}},
		Buttons: buttons,
	})
	if err != nil {
		return "", apperrors.NewExternalDeliveryFailure("post panel", err)
	}
	return messageID, nil
}
