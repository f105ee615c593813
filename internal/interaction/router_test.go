package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/service"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

type fakeMachine struct {
	getByChannelFunc func(ctx context.Context, channelID string) (*domain.Ticket, error)
	claimFunc        func(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
	closeFunc        func(ctx context.Context, guildID, ticketID, actorID string, reason *string) (*service.CloseResult, error)
	archiveFunc      func(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
	deleteFunc       func(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
}

func (f *fakeMachine) GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	return f.getByChannelFunc(ctx, channelID)
}

func (f *fakeMachine) Claim(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	return f.claimFunc(ctx, guildID, ticketID, actorID)
}

func (f *fakeMachine) Close(ctx context.Context, guildID, ticketID, actorID string, reason *string) (*service.CloseResult, error) {
	return f.closeFunc(ctx, guildID, ticketID, actorID, reason)
}

func (f *fakeMachine) Archive(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	return f.archiveFunc(ctx, guildID, ticketID, actorID)
}

func (f *fakeMachine) Delete(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	return f.deleteFunc(ctx, guildID, ticketID, actorID)
}

type fakeRater struct {
	submitted []int
	finalized []string
	submitErr error
}

func (f *fakeRater) Submit(_ context.Context, _ string, _ string, rating int, _ *string) (*domain.TicketRating, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, rating)
	return &domain.TicketRating{Rating: rating}, nil
}

func (f *fakeRater) Finalize(_ context.Context, ticketID string) (*domain.Ticket, error) {
	f.finalized = append(f.finalized, ticketID)
	return &domain.Ticket{ID: ticketID}, nil
}

type fakeRoles struct {
	roleID string
	err    error
}

func (f fakeRoles) SupportRoleID(context.Context, string, *string) (string, error) {
	return f.roleID, f.err
}

var supportStaff = fakeRoles{roleID: "role-support"}

type fakeOpener struct {
	got service.ProvisionRequest
}

func (f *fakeOpener) Provision(_ context.Context, req service.ProvisionRequest) (*domain.Ticket, error) {
	f.got = req
	return &domain.Ticket{TicketNumber: "TAAAA0001", ChannelID: "chan-9"}, nil
}

func ticketInChannel(channelID string) func(context.Context, string) (*domain.Ticket, error) {
	return func(_ context.Context, id string) (*domain.Ticket, error) {
		if id != channelID {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return &domain.Ticket{ID: "t1", TicketNumber: "TABCD1234", GuildID: "g1", ChannelID: channelID, RequesterID: "user-ada"}, nil
	}
}

func TestDispatchClaimUsesTicketOfChannel(t *testing.T) {
	var claimed string
	machine := &fakeMachine{
		getByChannelFunc: ticketInChannel("chan-1"),
		claimFunc: func(_ context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
			claimed = guildID + "/" + ticketID + "/" + actorID
			return &domain.Ticket{}, nil
		},
	}
	router := NewRouter(machine, &fakeRater{}, &fakeOpener{}, supportStaff, nil)

	res := router.Dispatch(context.Background(), Interaction{
		GuildID: "g1", ChannelID: "chan-1", UserID: "mod", UserRoles: []string{"role-support"}, CustomID: "ticket_claim",
	})
	assert.True(t, res.Success)
	assert.Equal(t, "g1/t1/mod", claimed)

	res = router.Dispatch(context.Background(), Interaction{GuildID: "g1", ChannelID: "elsewhere", UserID: "mod", CustomID: "ticket_claim"})
	assert.False(t, res.Success)
	assert.Equal(t, "This channel is not an active ticket.", res.Message)
}

func TestDispatchSurfacesGuardMessage(t *testing.T) {
	machine := &fakeMachine{
		getByChannelFunc: ticketInChannel("chan-1"),
		closeFunc: func(context.Context, string, string, string, *string) (*service.CloseResult, error) {
			return nil, apperrors.NewInvalidTransition("closed", "close")
		},
		archiveFunc: func(context.Context, string, string, string) (*domain.Ticket, error) {
			return nil, apperrors.NewPersistenceFailure("archive ticket", errors.New("db down"))
		},
	}
	router := NewRouter(machine, &fakeRater{}, &fakeOpener{}, supportStaff, nil)

	res := router.Dispatch(context.Background(), Interaction{ChannelID: "chan-1", UserID: "user-ada", CustomID: "ticket_close"})
	assert.False(t, res.Success)
	assert.Equal(t, "cannot close a ticket that is closed", res.Message)

	res = router.Dispatch(context.Background(), Interaction{ChannelID: "chan-1", UserID: "lead", CanManage: true, CustomID: "ticket_archive"})
	assert.False(t, res.Success)
	assert.Equal(t, "Something went wrong. Please try again later.", res.Message)
}

func TestDispatchRatingSubmitsThenFinalizes(t *testing.T) {
	rater := &fakeRater{}
	router := NewRouter(&fakeMachine{}, rater, &fakeOpener{}, supportStaff, nil)

	res := router.Dispatch(context.Background(), Interaction{UserID: "u1", CustomID: "ticket_rate_t1_4"})
	assert.True(t, res.Success)
	assert.Equal(t, []int{4}, rater.submitted)
	assert.Equal(t, []string{"t1"}, rater.finalized)

	rater.submitErr = apperrors.NewAlreadyRated("t1")
	res = router.Dispatch(context.Background(), Interaction{UserID: "u1", CustomID: "ticket_rate_t1_5"})
	assert.False(t, res.Success)
	assert.Equal(t, "you have already rated this ticket", res.Message)
	assert.Equal(t, []string{"t1", "t1"}, rater.finalized)

	rater.submitErr = apperrors.NewNotOwner("t1")
	res = router.Dispatch(context.Background(), Interaction{UserID: "u2", CustomID: "ticket_rate_t1_5"})
	assert.False(t, res.Success)
	assert.Len(t, rater.finalized, 2)
}

func TestDispatchLifecycleButtonsRequireStaff(t *testing.T) {
	var calls []string
	record := func(name string) func(context.Context, string, string, string) (*domain.Ticket, error) {
		return func(context.Context, string, string, string) (*domain.Ticket, error) {
			calls = append(calls, name)
			return &domain.Ticket{}, nil
		}
	}
	machine := &fakeMachine{
		getByChannelFunc: ticketInChannel("chan-1"),
		claimFunc:        record("claim"),
		archiveFunc:      record("archive"),
		deleteFunc:       record("delete"),
		closeFunc: func(context.Context, string, string, string, *string) (*service.CloseResult, error) {
			calls = append(calls, "close")
			return &service.CloseResult{}, nil
		},
	}
	router := NewRouter(machine, &fakeRater{}, &fakeOpener{}, supportStaff, nil)
	ctx := context.Background()

	requester := Interaction{GuildID: "g1", ChannelID: "chan-1", UserID: "user-ada"}
	for _, id := range []string{"ticket_claim", "ticket_archive", "ticket_delete"} {
		in := requester
		in.CustomID = id
		res := router.Dispatch(ctx, in)
		assert.False(t, res.Success, id)
		assert.Equal(t, "only support staff can do that", res.Message, id)
	}
	assert.Empty(t, calls)

	requester.CustomID = "ticket_close"
	assert.True(t, router.Dispatch(ctx, requester).Success)

	bystander := Interaction{GuildID: "g1", ChannelID: "chan-1", UserID: "user-bob", UserRoles: []string{"role-other"}, CustomID: "ticket_close"}
	assert.False(t, router.Dispatch(ctx, bystander).Success)

	staff := Interaction{GuildID: "g1", ChannelID: "chan-1", UserID: "mod", UserRoles: []string{"role-support"}, CustomID: "ticket_claim"}
	assert.True(t, router.Dispatch(ctx, staff).Success)
	assert.Equal(t, []string{"close", "claim"}, calls)
}

func TestDispatchWithoutSupportRoleOnlyModeratorsAreStaff(t *testing.T) {
	claimed := 0
	machine := &fakeMachine{
		getByChannelFunc: ticketInChannel("chan-1"),
		claimFunc: func(context.Context, string, string, string) (*domain.Ticket, error) {
			claimed++
			return &domain.Ticket{}, nil
		},
	}
	router := NewRouter(machine, &fakeRater{}, &fakeOpener{}, fakeRoles{}, nil)
	ctx := context.Background()

	res := router.Dispatch(ctx, Interaction{ChannelID: "chan-1", UserID: "mod", UserRoles: []string{""}, CustomID: "ticket_claim"})
	assert.False(t, res.Success)

	res = router.Dispatch(ctx, Interaction{ChannelID: "chan-1", UserID: "lead", CanManage: true, CustomID: "ticket_claim"})
	assert.True(t, res.Success)
	assert.Equal(t, 1, claimed)

	router = NewRouter(machine, &fakeRater{}, &fakeOpener{}, fakeRoles{err: apperrors.NewPersistenceFailure("load guild config", errors.New("db down"))}, nil)
	res = router.Dispatch(ctx, Interaction{ChannelID: "chan-1", UserID: "mod", CustomID: "ticket_claim"})
	assert.Equal(t, "Something went wrong. Please try again later.", res.Message)
}

func TestDispatchPanelOpensModalAndModalProvisions(t *testing.T) {
	opener := &fakeOpener{}
	router := NewRouter(&fakeMachine{}, &fakeRater{}, opener, supportStaff, nil)

	res := router.Dispatch(context.Background(), Interaction{CustomID: "ticket_open_cat-7"})
	require.NotNil(t, res.Modal)
	assert.Equal(t, "ticket_modal_cat-7", res.Modal.ID)

	res = router.Dispatch(context.Background(), Interaction{
		GuildID:  "g1",
		UserID:   "u1",
		UserName: "Ada",
		CustomID: res.Modal.ID,
		Fields:   map[string]string{FieldSubject: "  Refund  ", FieldDescription: ""},
	})
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "<#chan-9>")
	assert.Equal(t, "Refund", opener.got.Subject)
	assert.Nil(t, opener.got.Description)
	require.NotNil(t, opener.got.CategoryID)
	assert.Equal(t, "cat-7", *opener.got.CategoryID)
	assert.NotNil(t, opener.got.RequesterRoles)
}

func TestDispatchUnknown(t *testing.T) {
	router := NewRouter(&fakeMachine{}, &fakeRater{}, &fakeOpener{}, supportStaff, nil)
	res := router.Dispatch(context.Background(), Interaction{CustomID: "nope"})
	assert.False(t, res.Success)
}
