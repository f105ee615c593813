package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

func TestTicketLifecycleEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()

	ticket := h.open(t, "Billing", nil)
	assert.NotEmpty(t, ticket.ChannelID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "Billing", ticket.Subject)
	assert.True(t, domain.IsTicketNumber(ticket.TicketNumber))

	claimed, err := h.tickets.Claim(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedByID)
	assert.Equal(t, testModerator, *claimed.ClaimedByID)

	h.clock.Advance(10 * time.Minute)
	reason := "Resolved"
	result, err := h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, &reason)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, result.Ticket.Status)
	require.NotNil(t, result.Ticket.ClosedAt)
	assert.True(t, result.Transcript.Delivered(DestinationTicketChannel))
	assert.Equal(t, 2, result.Transcript.MessageCount)

	stored, err := h.tickets.Get(ctx, testGuild, ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.RatingRequestedAt)
	assert.Nil(t, stored.FinalizedAt)

	rating, err := h.gate.Submit(ctx, ticket.ID, testRequester, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Rating)

	_, err = h.gate.Submit(ctx, ticket.ID, testRequester, 4, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyRated))

	_, err = h.gate.Submit(ctx, ticket.ID, testModerator, 4, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotOwner))

	finalized, err := h.gate.Finalize(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, finalized.ScheduledDeletionAt)
	assert.Equal(t, h.clock.Now().Add(24*time.Hour), *finalized.ScheduledDeletionAt)
	assert.Equal(t, "closed-ticket-"+ticket.ChannelID, h.renamed[ticket.ChannelID])

	again, err := h.gate.Finalize(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, *finalized.FinalizedAt, *again.FinalizedAt)

	history, err := h.store.History().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	var types []domain.TicketChangeType
	for _, entry := range history {
		types = append(types, entry.ChangeType)
	}
	assert.Equal(t, []domain.TicketChangeType{
		domain.ChangeTypeCreated,
		domain.ChangeTypeStatus,
		domain.ChangeTypeStatus,
		domain.ChangeTypeRated,
		domain.ChangeTypeFinalized,
	}, types)
}

func TestTransitionGuards(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Login problem", nil)

	_, err := h.tickets.Archive(ctx, testGuild, ticket.ID, testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "archive before close")

	_, err = h.tickets.Unclaim(ctx, testGuild, ticket.ID, testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "unclaim an open ticket")

	_, err = h.tickets.Claim(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	_, err = h.tickets.Claim(ctx, testGuild, ticket.ID, "mod-2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "claim twice")

	_, err = h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
	require.NoError(t, err)
	_, err = h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "close twice")
	_, err = h.tickets.Resolve(ctx, testGuild, ticket.ID, testModerator, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "resolve a closed ticket")

	archived, err := h.tickets.Archive(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	_, err = h.tickets.Reopen(ctx, testGuild, ticket.ID, testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "reopen while archived")

	_, err = h.tickets.Delete(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	_, err = h.tickets.Delete(ctx, testGuild, ticket.ID, testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "delete twice")

	stats, err := h.tickets.Stats(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestArchiveCreatesContainerAndHidesChannel(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Old issue", nil)
	_, err := h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
	require.NoError(t, err)

	_, err = h.tickets.Archive(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)

	cfg, err := h.configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "archive-1", cfg.ArchiveContainerID)
	assert.Equal(t, "archived-ticket-"+ticket.ChannelID, h.renamed[ticket.ChannelID])

	perms := h.perms[ticket.ChannelID]
	require.NotEmpty(t, perms)
	last := perms[len(perms)-1]
	assert.Equal(t, testGuild, last.ID)
	assert.True(t, last.Deny.Has(messaging.PermViewChannel))

	unarchived, err := h.tickets.Unarchive(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	assert.False(t, unarchived.Archived)
	assert.Equal(t, domain.TicketStatusClosed, unarchived.Status)
}

func TestReopenClearsRatingAndSchedule(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Flaky build", nil)

	_, err := h.tickets.Resolve(ctx, testGuild, ticket.ID, testModerator, nil)
	require.NoError(t, err)
	_, err = h.gate.Finalize(ctx, ticket.ID)
	require.NoError(t, err)

	reopened, err := h.tickets.Reopen(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.RatingRequestedAt)
	assert.Nil(t, reopened.FinalizedAt)
	assert.Nil(t, reopened.ScheduledDeletionAt)

	due, err := h.store.Tickets().ListDueForDeletion(ctx, h.clock.Now().Add(48*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

// staleTickets serves a snapshot taken before a concurrent change.
type staleTickets struct {
	repository.TicketRepository
	snapshot domain.Ticket
}

func (s staleTickets) GetByID(context.Context, string) (*domain.Ticket, error) {
	clone := s.snapshot
	return &clone, nil
}

func TestConcurrentClaimLosesWithConflict(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Race", nil)

	_, err := h.tickets.Claim(ctx, testGuild, ticket.ID, testModerator)
	require.NoError(t, err)

	loser := NewTicketService(TicketDependencies{
		TicketRepo: staleTickets{TicketRepository: h.store.Tickets(), snapshot: *ticket},
		Configs:    h.configs,
		Messenger:  h.messenger,
		Metrics:    h.metrics,
		Clock:      h.clock,
	})
	_, err = loser.Claim(ctx, testGuild, ticket.ID, "mod-2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransitionConflict))

	stored, err := h.tickets.Get(ctx, testGuild, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, testModerator, *stored.ClaimedByID)
	assert.Equal(t, int64(1), h.metrics.Snapshot()["transitions"]["claim|conflict"])
}

func TestCloseWithoutReachableRequesterFinalizesImmediately(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(messaging.ErrMemberNotFound)
	ctx := context.Background()
	ticket := h.open(t, "Left the server", nil)

	result, err := h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
	require.NoError(t, err)
	assert.False(t, result.Transcript.Delivered(DestinationDirectMessage))
	assert.True(t, result.Transcript.Delivered(DestinationTicketChannel))

	stored, err := h.tickets.Get(ctx, testGuild, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RatingRequestedAt)
	require.NotNil(t, stored.ScheduledDeletionAt)
	assert.Equal(t, testStart.Add(24*time.Hour), *stored.ScheduledDeletionAt)
}

func TestUpdatePriorityAndDetails(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Slow dashboard", nil)

	updated, err := h.tickets.UpdatePriority(ctx, testGuild, ticket.ID, testModerator, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)

	_, err = h.tickets.UpdatePriority(ctx, testGuild, ticket.ID, testModerator, "SOMEDAY")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	reason := "dup"
	_, err = h.tickets.UpdateDetails(ctx, testGuild, ticket.ID, testModerator, TicketDetailsPatch{CloseReason: &reason})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	subject := "Dashboard loads slowly"
	updated, err = h.tickets.UpdateDetails(ctx, testGuild, ticket.ID, testModerator, TicketDetailsPatch{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, subject, updated.Subject)

	_, err = h.tickets.Get(ctx, "other-guild", ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRatingRules(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	ticket := h.open(t, "Question", nil)

	_, err := h.gate.Submit(ctx, ticket.ID, testRequester, 5, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "rating an open ticket")

	_, err = h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
	require.NoError(t, err)

	_, err = h.gate.Submit(ctx, ticket.ID, testRequester, 6, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.gate.Submit(ctx, "missing", testRequester, 3, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	feedback := "  quick and friendly  "
	rating, err := h.gate.Submit(ctx, ticket.ID, testRequester, 4, &feedback)
	require.NoError(t, err)
	require.NotNil(t, rating.Feedback)
	assert.Equal(t, "quick and friendly", *rating.Feedback)

	prompts := h.sentTo(ticket.ChannelID)
	var rateButtons int
	for _, msg := range prompts {
		for _, b := range msg.Buttons {
			if b.ID == "ticket_rate_"+ticket.ID+"_5" {
				rateButtons++
			}
		}
	}
	assert.Equal(t, 1, rateButtons)
}
