package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/interaction"
	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	"github.com/spec-kit/ticket-engine/internal/service"
)

const (
	subjectMaxLength     = 100
	descriptionMaxLength = 1000
)

// Responder is the subset of *discordgo.Session used to answer interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Responder = (*discordgo.Session)(nil)

// InteractionHandler resolves an interaction into a user-facing result.
type InteractionHandler interface {
	Dispatch(ctx context.Context, in interaction.Interaction) interaction.Result
}

// MessageRecorder stores messages posted in ticket channels.
type MessageRecorder interface {
	Record(ctx context.Context, msg service.IncomingMessage) (bool, error)
}

// Gateway forwards gateway events to the interaction router and message log.
type Gateway struct {
	responder Responder
	router    InteractionHandler
	messages  MessageRecorder
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGateway constructs the gateway. timeout bounds the work done per event.
func NewGateway(responder Responder, router InteractionHandler, messages MessageRecorder, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{responder: responder, router: router, messages: messages, timeout: timeout, logger: logger}
}

// Register subscribes the gateway handlers and requests the intents they need.
func (g *Gateway) Register(session *discordgo.Session) {
	session.Identify.Intents |= discordgo.IntentGuilds | discordgo.IntentGuildMessages |
		discordgo.IntentGuildMembers | discordgo.IntentMessageContent
	session.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
		g.HandleInteraction(ev.Interaction)
	})
	session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) {
		g.HandleMessage(ev.Message)
	})
}

// HandleInteraction answers a button press or modal submission. Panel buttons
// get a modal right away; everything else is deferred and edited once the
// router is done, since closing a ticket can outlast the response window.
func (g *Gateway) HandleInteraction(i *discordgo.Interaction) {
	in, ok := toInteraction(i)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if customid.Parse(in.CustomID).Kind == customid.KindOpen {
		res := g.router.Dispatch(ctx, in)
		if res.Modal == nil {
			g.reply(i, res.Message)
			return
		}
		if err := g.responder.InteractionRespond(i, modalResponse(res.Modal), discordgo.WithContext(ctx)); err != nil {
			g.logger.Warn("failed to open ticket modal", zap.String("custom_id", in.CustomID), zap.Error(err))
		}
		return
	}

	deferred := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
	if err := g.responder.InteractionRespond(i, deferred, discordgo.WithContext(ctx)); err != nil {
		g.logger.Warn("failed to acknowledge interaction", zap.String("custom_id", in.CustomID), zap.Error(err))
		return
	}
	res := g.router.Dispatch(ctx, in)
	content := res.Message
	if _, err := g.responder.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx)); err != nil {
		g.logger.Warn("failed to send interaction result", zap.String("custom_id", in.CustomID), zap.Error(err))
	}
}

// HandleMessage appends guild messages to the ticket message log.
func (g *Gateway) HandleMessage(m *discordgo.Message) {
	if m == nil || m.Author == nil || m.GuildID == "" {
		return
	}
	msg := service.IncomingMessage{
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
	}
	if m.Member != nil {
		msg.AuthorRoles = m.Member.Roles
		if m.Member.Nick != "" {
			msg.AuthorName = m.Member.Nick
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if _, err := g.messages.Record(ctx, msg); err != nil {
		g.logger.Warn("failed to log ticket message", zap.String("channel_id", m.ChannelID), zap.Error(err))
	}
}

func (g *Gateway) reply(i *discordgo.Interaction, content string) {
	err := g.responder.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		g.logger.Warn("failed to reply to interaction", zap.Error(err))
	}
}

func toInteraction(i *discordgo.Interaction) (interaction.Interaction, bool) {
	in := interaction.Interaction{GuildID: i.GuildID, ChannelID: i.ChannelID}
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		in.CustomID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.CustomID = data.CustomID
		in.Fields = textInputs(data.Components)
	default:
		return in, false
	}
	if i.Member != nil && i.Member.User != nil {
		member := toMember(i.GuildID, i.Member)
		in.UserID, in.UserName, in.UserRoles = member.UserID, member.DisplayName, member.Roles
		in.CanManage = i.Member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageChannels) != 0
	} else if i.User != nil {
		in.UserID, in.UserName = i.User.ID, i.User.Username
	}
	return in, in.UserID != ""
}

func textInputs(components []discordgo.MessageComponent) map[string]string {
	fields := map[string]string{}
	var walk func([]discordgo.MessageComponent)
	walk = func(list []discordgo.MessageComponent) {
		for _, c := range list {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				fields[v.CustomID] = v.Value
			case discordgo.TextInput:
				fields[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return fields
}

func modalResponse(modal *interaction.Modal) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: modal.ID,
			Title:    modal.Title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  interaction.FieldSubject,
						Label:     "Subject",
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: subjectMaxLength,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  interaction.FieldDescription,
						Label:     "Describe your issue",
						Style:     discordgo.TextInputParagraph,
						Required:  false,
						MaxLength: descriptionMaxLength,
					},
				}},
			},
		},
	}
}
