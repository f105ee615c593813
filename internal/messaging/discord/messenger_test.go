package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/messaging"
)

// fakeAPI implements API; only the methods a test sets are usable.
type fakeAPI struct {
	API
	memberCalls int
	member      *discordgo.Member
	memberErr   error
	lastSend    *discordgo.MessageSend
	lastPerm    [3]int64
}

func (f *fakeAPI) GuildMember(_, _ string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.memberCalls++
	return f.member, f.memberErr
}

func (f *fakeAPI) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.lastSend = data
	return &discordgo.Message{ID: "m1"}, nil
}

func (f *fakeAPI) ChannelPermissionSet(_, _ string, targetType discordgo.PermissionOverwriteType, allow, deny int64, _ ...discordgo.RequestOption) error {
	f.lastPerm = [3]int64{int64(targetType), allow, deny}
	return nil
}

func TestMemberLookupsAreCached(t *testing.T) {
	api := &fakeAPI{member: &discordgo.Member{
		User:  &discordgo.User{ID: "u1", Username: "ada", GlobalName: "Ada L"},
		Roles: []string{"r1"},
	}}
	m := NewMessenger(api, time.Minute, zap.NewNop())
	defer m.Close()

	for i := 0; i < 3; i++ {
		member, err := m.Member(t.Context(), "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ada L", member.DisplayName)
		assert.True(t, member.HasRole("r1"))
	}
	assert.Equal(t, 1, api.memberCalls)
}

func TestMemberNotFoundMapsToSentinel(t *testing.T) {
	api := &fakeAPI{memberErr: &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}}
	m := NewMessenger(api, time.Minute, zap.NewNop())
	defer m.Close()

	_, err := m.Member(t.Context(), "g1", "gone")
	assert.True(t, errors.Is(err, messaging.ErrMemberNotFound))

	api.memberErr = &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember},
	}
	_, err = m.Member(t.Context(), "g1", "gone-too")
	assert.True(t, errors.Is(err, messaging.ErrMemberNotFound))
}

func TestSendMessageLaysOutButtonsInRowsOfFive(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, time.Minute, zap.NewNop())
	defer m.Close()

	var buttons []messaging.Button
	for i := 0; i < 7; i++ {
		buttons = append(buttons, messaging.Button{ID: "b", Label: "x", Style: messaging.ButtonDanger})
	}
	_, err := m.SendMessage(t.Context(), "c1", messaging.OutgoingMessage{
		Content: "hi",
		Files:   []messaging.File{{Name: "t.txt", Data: []byte("abc")}},
		Buttons: buttons,
	})
	require.NoError(t, err)

	require.Len(t, api.lastSend.Components, 2)
	first := api.lastSend.Components[0].(discordgo.ActionsRow)
	second := api.lastSend.Components[1].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	assert.Len(t, second.Components, 2)
	assert.Equal(t, discordgo.DangerButton, first.Components[0].(discordgo.Button).Style)
	require.Len(t, api.lastSend.Files, 1)
	assert.Equal(t, "t.txt", api.lastSend.Files[0].Name)
}

func TestSetPermissionPassesBitsThrough(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, time.Minute, zap.NewNop())
	defer m.Close()

	err := m.SetPermission(t.Context(), "c1", messaging.Overwrite{
		ID:     "u1",
		Target: messaging.TargetMember,
		Allow:  messaging.PermViewChannel,
		Deny:   messaging.PermSendMessages,
	})
	require.NoError(t, err)
	assert.Equal(t, [3]int64{
		int64(discordgo.PermissionOverwriteTypeMember),
		discordgo.PermissionViewChannel,
		discordgo.PermissionSendMessages,
	}, api.lastPerm)
}

func TestToMemberPrefersNickname(t *testing.T) {
	member := toMember("g1", &discordgo.Member{Nick: "Boss", User: &discordgo.User{ID: "u1", Username: "ada", GlobalName: "Ada"}})
	assert.Equal(t, "Boss", member.DisplayName)
	assert.Equal(t, "u1", member.UserID)
}
