package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

var at = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestClaim(t *testing.T) {
	next, err := Claim(OpenState{}, "mod-1", at)
	require.NoError(t, err)
	assert.Equal(t, ClaimedState{Claim: Mark{By: "mod-1", At: at}}, next)

	_, err = Claim(next, "mod-2", at)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "claimed")
}

func TestUnclaim(t *testing.T) {
	next, err := Unclaim(ClaimedState{Claim: Mark{By: "mod-1", At: at}})
	require.NoError(t, err)
	assert.Equal(t, OpenState{}, next)

	_, err = Unclaim(OpenState{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = Unclaim(ClosedState{Status: TicketStatusClosed})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestClose(t *testing.T) {
	tests := []struct {
		name    string
		from    TicketState
		status  TicketStatus
		wantErr bool
	}{
		{name: "from open", from: OpenState{}, status: TicketStatusClosed},
		{name: "from claimed", from: ClaimedState{Claim: Mark{By: "mod-1", At: at}}, status: TicketStatusClosed},
		{name: "resolve from open", from: OpenState{}, status: TicketStatusResolved},
		{name: "from closed", from: ClosedState{Status: TicketStatusClosed}, status: TicketStatusClosed, wantErr: true},
		{name: "from resolved", from: ClosedState{Status: TicketStatusResolved}, status: TicketStatusClosed, wantErr: true},
		{name: "non terminal target", from: OpenState{}, status: TicketStatusClaimed, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Close(tt.from, tt.status, "mod-1", at, strPtr("done"))
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
				return
			}
			require.NoError(t, err)
			closed, ok := next.(ClosedState)
			require.True(t, ok)
			assert.Equal(t, tt.status, closed.Status)
			assert.Equal(t, "done", *closed.Reason)
		})
	}
}

func TestCloseKeepsClaim(t *testing.T) {
	next, err := Close(ClaimedState{Claim: Mark{By: "mod-1", At: at}}, TicketStatusClosed, "mod-2", at, nil)
	require.NoError(t, err)
	closed := next.(ClosedState)
	require.NotNil(t, closed.Claim)
	assert.Equal(t, "mod-1", closed.Claim.By)
}

func TestReopen(t *testing.T) {
	next, err := Reopen(ClosedState{Status: TicketStatusResolved})
	require.NoError(t, err)
	assert.Equal(t, OpenState{}, next)

	_, err = Reopen(OpenState{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = Reopen(ArchivedState{From: ClosedState{Status: TicketStatusClosed}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestArchiveRequiresClose(t *testing.T) {
	_, err := Archive(OpenState{}, "mod-1", at)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	closed := ClosedState{Status: TicketStatusClosed, Close: Mark{By: "mod-1", At: at}}
	archived, err := Archive(closed, "mod-1", at)
	require.NoError(t, err)

	_, err = Archive(archived, "mod-1", at)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	restored, err := Unarchive(archived)
	require.NoError(t, err)
	assert.Equal(t, closed, restored)

	_, err = Unarchive(closed)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSoftDeleteIsOneWay(t *testing.T) {
	deleted, err := SoftDelete(ClaimedState{Claim: Mark{By: "mod-1", At: at}}, "mod-2", at)
	require.NoError(t, err)

	_, err = SoftDelete(deleted, "mod-2", at.Add(time.Minute))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	for _, transition := range []func(TicketState) (TicketState, error){
		func(s TicketState) (TicketState, error) { return Claim(s, "x", at) },
		Unclaim,
		func(s TicketState) (TicketState, error) { return Close(s, TicketStatusClosed, "x", at, nil) },
		Reopen,
		func(s TicketState) (TicketState, error) { return Archive(s, "x", at) },
		Unarchive,
	} {
		_, err := transition(deleted)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	}
}

func TestStateRoundTrip(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusOpen}

	steps := []func(TicketState) (TicketState, error){
		func(s TicketState) (TicketState, error) { return Claim(s, "mod-1", at) },
		func(s TicketState) (TicketState, error) {
			return Close(s, TicketStatusClosed, "mod-2", at, strPtr("fixed"))
		},
		func(s TicketState) (TicketState, error) { return Archive(s, "mod-3", at) },
		func(s TicketState) (TicketState, error) { return SoftDelete(s, "mod-4", at) },
	}
	for _, step := range steps {
		next, err := step(ticket.State())
		require.NoError(t, err)
		ticket.ApplyState(next)
		assert.Equal(t, next, ticket.State())
	}

	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.True(t, ticket.Archived)
	assert.Equal(t, "mod-1", *ticket.ClaimedByID)
	assert.Equal(t, "mod-2", *ticket.ClosedByID)
	assert.Equal(t, "mod-3", *ticket.ArchivedByID)
	assert.Equal(t, "mod-4", *ticket.DeletedByID)
	assert.True(t, ticket.IsDeleted())
}

func TestApplyStateClearsPairs(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusOpen}
	closed, err := Close(OpenState{}, TicketStatusClosed, "mod-1", at, strPtr("spam"))
	require.NoError(t, err)
	ticket.ApplyState(closed)
	require.NotNil(t, ticket.ClosedAt)

	reopened, err := Reopen(ticket.State())
	require.NoError(t, err)
	ticket.ApplyState(reopened)

	assert.Equal(t, TicketStatusOpen, ticket.Status)
	assert.Nil(t, ticket.ClosedByID)
	assert.Nil(t, ticket.ClosedAt)
	assert.Nil(t, ticket.CloseReason)
	assert.Nil(t, ticket.ClaimedByID)
	assert.Nil(t, ticket.ClaimedAt)
}
