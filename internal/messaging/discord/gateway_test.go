package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/interaction"
	"github.com/spec-kit/ticket-engine/internal/service"
)

type recordingResponder struct {
	responses []*discordgo.InteractionResponse
	edits     []string
}

func (r *recordingResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recordingResponder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.edits = append(r.edits, *edit.Content)
	return &discordgo.Message{}, nil
}

type handlerFunc func(ctx context.Context, in interaction.Interaction) interaction.Result

func (f handlerFunc) Dispatch(ctx context.Context, in interaction.Interaction) interaction.Result {
	return f(ctx, in)
}

type recorderFunc func(ctx context.Context, msg service.IncomingMessage) (bool, error)

func (f recorderFunc) Record(ctx context.Context, msg service.IncomingMessage) (bool, error) {
	return f(ctx, msg)
}

func memberOf(userID, nick string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}, Nick: nick, Roles: roles}
}

func TestButtonInteractionIsDeferredThenEdited(t *testing.T) {
	responder := &recordingResponder{}
	var got interaction.Interaction
	gw := NewGateway(responder, handlerFunc(func(_ context.Context, in interaction.Interaction) interaction.Result {
		got = in
		return interaction.Result{Success: true, Message: "You claimed this ticket."}
	}), nil, time.Second, zap.NewNop())

	gw.HandleInteraction(&discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    memberOf("u1", "Mod", "r1"),
		Data:      discordgo.MessageComponentInteractionData{CustomID: "ticket_claim"},
	})

	assert.Equal(t, "ticket_claim", got.CustomID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Mod", got.UserName)
	assert.Equal(t, []string{"r1"}, got.UserRoles)
	assert.False(t, got.CanManage)
	require.Len(t, responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, responder.responses[0].Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, responder.responses[0].Data.Flags)
	assert.Equal(t, []string{"You claimed this ticket."}, responder.edits)
}

func TestPanelButtonOpensModal(t *testing.T) {
	responder := &recordingResponder{}
	gw := NewGateway(responder, handlerFunc(func(_ context.Context, in interaction.Interaction) interaction.Result {
		return interaction.Result{Success: true, Modal: &interaction.Modal{ID: "ticket_modal_general", Title: "Open a ticket"}}
	}), nil, time.Second, zap.NewNop())

	gw.HandleInteraction(&discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: memberOf("u1", ""),
		Data:   discordgo.MessageComponentInteractionData{CustomID: "ticket_open_general"},
	})

	require.Len(t, responder.responses, 1)
	resp := responder.responses[0]
	assert.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	assert.Equal(t, "ticket_modal_general", resp.Data.CustomID)
	assert.Len(t, resp.Data.Components, 2)
	assert.Empty(t, responder.edits)
}

func TestModalSubmissionCarriesFields(t *testing.T) {
	responder := &recordingResponder{}
	var got interaction.Interaction
	gw := NewGateway(responder, handlerFunc(func(_ context.Context, in interaction.Interaction) interaction.Result {
		got = in
		return interaction.Result{Success: true, Message: "ok"}
	}), nil, time.Second, zap.NewNop())

	gw.HandleInteraction(&discordgo.Interaction{
		Type: discordgo.InteractionModalSubmit,
		User: &discordgo.User{ID: "u2", Username: "grace"},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: "ticket_modal_general",
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: interaction.FieldSubject, Value: "Billing"},
				}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: interaction.FieldDescription, Value: "Charged twice"},
				}},
			},
		},
	})

	assert.Equal(t, "u2", got.UserID)
	assert.Equal(t, "grace", got.UserName)
	assert.Equal(t, map[string]string{"subject": "Billing", "description": "Charged twice"}, got.Fields)
}

func TestNonComponentInteractionsAreIgnored(t *testing.T) {
	responder := &recordingResponder{}
	gw := NewGateway(responder, handlerFunc(func(context.Context, interaction.Interaction) interaction.Result {
		t.Fatal("router must not be called")
		return interaction.Result{}
	}), nil, time.Second, zap.NewNop())

	gw.HandleInteraction(&discordgo.Interaction{Type: discordgo.InteractionPing})
	assert.Empty(t, responder.responses)
}

func TestHandleMessageForwardsGuildMessages(t *testing.T) {
	var got []service.IncomingMessage
	gw := NewGateway(&recordingResponder{}, nil, recorderFunc(func(_ context.Context, msg service.IncomingMessage) (bool, error) {
		got = append(got, msg)
		return true, nil
	}), time.Second, zap.NewNop())

	gw.HandleMessage(&discordgo.Message{
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "hello",
		Author:    &discordgo.User{ID: "u1", Username: "ada"},
		Member:    &discordgo.Member{Nick: "Ada", Roles: []string{"r1"}},
	})
	gw.HandleMessage(&discordgo.Message{ChannelID: "dm", Content: "hi", Author: &discordgo.User{ID: "u1"}})

	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].AuthorName)
	assert.Equal(t, []string{"r1"}, got[0].AuthorRoles)
}

func TestModeratorPermissionsMarkInteraction(t *testing.T) {
	responder := &recordingResponder{}
	var got interaction.Interaction
	gw := NewGateway(responder, handlerFunc(func(_ context.Context, in interaction.Interaction) interaction.Result {
		got = in
		return interaction.Result{Success: true, Message: "ok"}
	}), nil, time.Second, zap.NewNop())

	member := memberOf("u9", "Lead")
	member.Permissions = discordgo.PermissionManageChannels
	gw.HandleInteraction(&discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    member,
		Data:      discordgo.MessageComponentInteractionData{CustomID: "ticket_delete"},
	})

	assert.Equal(t, "u9", got.UserID)
	assert.True(t, got.CanManage)
}
