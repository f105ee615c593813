// Package discord implements the messaging collaborator on top of discordgo
// and forwards gateway events to the ticket engine.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/messaging"
)

// maxButtonsPerRow is the platform limit for components in one action row.
const maxButtonsPerRow = 5

// Messenger implements messaging.Messenger against the Discord REST API.
type Messenger struct {
	api     API
	members *ttlcache.Cache[string, *messaging.Member]
	logger  *zap.Logger
}

// NewMessenger builds the adapter. memberTTL bounds how long role
// memberships are reused before being fetched again.
func NewMessenger(api API, memberTTL time.Duration, logger *zap.Logger) *Messenger {
	if memberTTL <= 0 {
		memberTTL = time.Minute
	}
	m := &Messenger{
		api:     api,
		members: ttlcache.New(ttlcache.WithTTL[string, *messaging.Member](memberTTL)),
		logger:  logger,
	}
	go m.members.Start()
	return m
}

// Close stops the member cache janitor.
func (m *Messenger) Close() {
	m.members.Stop()
}

func (m *Messenger) CreateChannel(ctx context.Context, spec messaging.ChannelSpec) (string, error) {
	channel, err := m.api.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: toOverwrites(spec.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err, messaging.ErrChannelNotFound)
	}
	return channel.ID, nil
}

func (m *Messenger) CreateContainer(ctx context.Context, guildID, name string, overwrites []messaging.Overwrite) (string, error) {
	channel, err := m.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: toOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (m *Messenger) Channel(ctx context.Context, channelID string) (*messaging.Channel, error) {
	channel, err := m.api.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, messaging.ErrChannelNotFound)
	}
	return &messaging.Channel{
		ID:          channel.ID,
		GuildID:     channel.GuildID,
		Name:        channel.Name,
		ParentID:    channel.ParentID,
		IsContainer: channel.Type == discordgo.ChannelTypeGuildCategory,
	}, nil
}

func (m *Messenger) SetChannelName(ctx context.Context, channelID, name string) error {
	_, err := m.api.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return mapError(err, messaging.ErrChannelNotFound)
}

func (m *Messenger) MoveChannel(ctx context.Context, channelID, parentID string) error {
	_, err := m.api.ChannelEdit(channelID, &discordgo.ChannelEdit{ParentID: parentID}, discordgo.WithContext(ctx))
	return mapError(err, messaging.ErrChannelNotFound)
}

func (m *Messenger) SetPermission(ctx context.Context, channelID string, overwrite messaging.Overwrite) error {
	err := m.api.ChannelPermissionSet(channelID, overwrite.ID, overwriteType(overwrite.Target),
		int64(overwrite.Allow), int64(overwrite.Deny), discordgo.WithContext(ctx))
	return mapError(err, messaging.ErrChannelNotFound)
}

func (m *Messenger) SendMessage(ctx context.Context, channelID string, msg messaging.OutgoingMessage) (string, error) {
	sent, err := m.api.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err, messaging.ErrChannelNotFound)
	}
	return sent.ID, nil
}

func (m *Messenger) SendDirectMessage(ctx context.Context, userID string, msg messaging.OutgoingMessage) (string, error) {
	dm, err := m.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open dm channel: %w", mapError(err, messaging.ErrMemberNotFound))
	}
	return m.SendMessage(ctx, dm.ID, msg)
}

func (m *Messenger) FetchMessages(ctx context.Context, channelID, before string, limit int) ([]messaging.HistoryMessage, error) {
	page, err := m.api.ChannelMessages(channelID, limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, messaging.ErrChannelNotFound)
	}
	result := make([]messaging.HistoryMessage, 0, len(page))
	for _, msg := range page {
		result = append(result, toHistoryMessage(msg))
	}
	return result, nil
}

func (m *Messenger) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := m.api.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return mapError(err, messaging.ErrChannelNotFound)
}

func (m *Messenger) Member(ctx context.Context, guildID, userID string) (*messaging.Member, error) {
	key := guildID + ":" + userID
	if item := m.members.Get(key); item != nil {
		return item.Value(), nil
	}
	member, err := m.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err, messaging.ErrMemberNotFound)
	}
	converted := toMember(guildID, member)
	m.members.Set(key, converted, ttlcache.DefaultTTL)
	return converted, nil
}

// mapError turns 404-class REST failures into the given sentinel.
func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", notFound, err)
		}
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
				return fmt.Errorf("%w: %v", notFound, err)
			}
		}
	}
	return err
}

func overwriteType(target messaging.OverwriteTarget) discordgo.PermissionOverwriteType {
	if target == messaging.TargetMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toOverwrites(in []messaging.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.ID,
			Type:  overwriteType(ow.Target),
			Allow: int64(ow.Allow),
			Deny:  int64(ow.Deny),
		})
	}
	return out
}

func toMessageSend(msg messaging.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	for _, embed := range msg.Embeds {
		send.Embeds = append(send.Embeds, toEmbed(embed))
	}
	for _, file := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		})
	}
	send.Components = toComponents(msg.Buttons)
	return send
}

func toEmbed(embed messaging.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, field := range embed.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	if !embed.Timestamp.IsZero() {
		out.Timestamp = embed.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

func toComponents(buttons []messaging.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				CustomID: b.ID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func buttonStyle(style messaging.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case messaging.ButtonSecondary:
		return discordgo.SecondaryButton
	case messaging.ButtonSuccess:
		return discordgo.SuccessButton
	case messaging.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func toHistoryMessage(msg *discordgo.Message) messaging.HistoryMessage {
	out := messaging.HistoryMessage{
		ID:        msg.ID,
		Content:   msg.Content,
		CreatedAt: msg.Timestamp,
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
		out.AuthorName = msg.Author.Username
		out.AuthorIsBot = msg.Author.Bot
	}
	for _, att := range msg.Attachments {
		out.Attachments = append(out.Attachments, messaging.Attachment{Name: att.Filename, Size: att.Size, URL: att.URL})
	}
	for _, embed := range msg.Embeds {
		converted := messaging.Embed{Title: embed.Title, Description: embed.Description, Color: embed.Color}
		for _, field := range embed.Fields {
			converted.Fields = append(converted.Fields, messaging.EmbedField{Name: field.Name, Value: field.Value, Inline: field.Inline})
		}
		out.Embeds = append(out.Embeds, converted)
	}
	for _, reaction := range msg.Reactions {
		if reaction.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, messaging.Reaction{Emoji: reaction.Emoji.Name, Count: reaction.Count})
	}
	return out
}

func toMember(guildID string, member *discordgo.Member) *messaging.Member {
	out := &messaging.Member{
		GuildID: guildID,
		Roles:   append([]string(nil), member.Roles...),
	}
	if member.User != nil {
		out.UserID = member.User.ID
		out.IsBot = member.User.Bot
		out.DisplayName = member.User.Username
		if member.User.GlobalName != "" {
			out.DisplayName = member.User.GlobalName
		}
	}
	if member.Nick != "" {
		out.DisplayName = member.Nick
	}
	return out
}
