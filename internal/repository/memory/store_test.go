package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

func newTicket(number, guildID, channelID string) *domain.Ticket {
	return &domain.Ticket{
		TicketNumber:         number,
		GuildID:              guildID,
		RequesterID:          "user-1",
		RequesterDisplayName: "Ada",
		ChannelID:            channelID,
		Status:               domain.TicketStatusOpen,
		Priority:             domain.TicketPriorityNormal,
		Subject:              "Billing",
	}
}

func closedTicket(number, guildID, channelID string) *domain.Ticket {
	ticket := newTicket(number, guildID, channelID)
	ticket.Status = domain.TicketStatusClosed
	return ticket
}

func TestTickets_CreateRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()

	require.NoError(t, repo.Create(ctx, newTicket("TAAAA0001", "g1", "c1")))
	err := repo.Create(ctx, newTicket("TAAAA0001", "g1", "c2"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestTickets_TransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	ticket := newTicket("TAAAA0001", "g1", "c1")
	require.NoError(t, repo.Create(ctx, ticket))

	first, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)

	now := time.Now()
	next, err := domain.Claim(first.State(), "mod-1", now)
	require.NoError(t, err)
	expected := first.Fingerprint()
	first.ApplyState(next)
	require.NoError(t, repo.Transition(ctx, first, expected))

	next, err = domain.Claim(second.State(), "mod-2", now)
	require.NoError(t, err)
	expected = second.Fingerprint()
	second.ApplyState(next)
	assert.ErrorIs(t, repo.Transition(ctx, second, expected), repository.ErrConflict)

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ClaimedByID)
	assert.Equal(t, "mod-1", *stored.ClaimedByID)
}

func TestTickets_DeletedExcludedFromActiveQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	ticket := newTicket("TAAAA0001", "g1", "c1")
	require.NoError(t, repo.Create(ctx, ticket))

	next, err := domain.SoftDelete(ticket.State(), "mod-1", time.Now())
	require.NoError(t, err)
	expected := ticket.Fingerprint()
	ticket.ApplyState(next)
	require.NoError(t, repo.Transition(ctx, ticket, expected))

	_, err = repo.GetByChannel(ctx, "c1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	active, err := repo.ListWithFilter(ctx, repository.TicketFilter{GuildID: "g1"})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.ListWithFilter(ctx, repository.TicketFilter{GuildID: "g1", IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.GetByID(ctx, ticket.ID)
	assert.NoError(t, err)
}

func TestTickets_MarkFinalizedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	ticket := closedTicket("TAAAA0001", "g1", "c1")
	require.NoError(t, repo.Create(ctx, ticket))

	now := time.Now()
	require.NoError(t, repo.MarkFinalized(ctx, ticket.ID, now, now.Add(time.Hour)))
	assert.ErrorIs(t, repo.MarkFinalized(ctx, ticket.ID, now, now.Add(time.Hour)), repository.ErrConflict)
}

func TestTickets_MarkFinalizedRequiresClosedTicket(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	now := time.Now()

	open := newTicket("TAAAA0001", "g1", "c1")
	require.NoError(t, repo.Create(ctx, open))
	assert.ErrorIs(t, repo.MarkFinalized(ctx, open.ID, now, now.Add(-time.Hour)), repository.ErrConflict)

	deleted := closedTicket("TAAAA0002", "g1", "c2")
	require.NoError(t, repo.Create(ctx, deleted))
	next, err := domain.SoftDelete(deleted.State(), "mod-1", now)
	require.NoError(t, err)
	expected := deleted.Fingerprint()
	deleted.ApplyState(next)
	require.NoError(t, repo.Transition(ctx, deleted, expected))
	assert.ErrorIs(t, repo.MarkFinalized(ctx, deleted.ID, now, now.Add(-time.Hour)), repository.ErrConflict)

	due, err := repo.ListDueForDeletion(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestTickets_TransitionConflictsAfterChannelSwept(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	ticket := closedTicket("TAAAA0001", "g1", "c1")
	require.NoError(t, repo.Create(ctx, ticket))

	expected := ticket.Fingerprint()
	require.NoError(t, repo.MarkChannelDeleted(ctx, ticket.ID, time.Now()))

	next, err := domain.Reopen(ticket.State())
	require.NoError(t, err)
	ticket.ApplyState(next)
	assert.ErrorIs(t, repo.Transition(ctx, ticket, expected), repository.ErrConflict)
}

func TestTickets_ListDueForDeletion(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tickets()
	now := time.Now()

	due := closedTicket("TAAAA0001", "g1", "c1")
	later := closedTicket("TAAAA0002", "g1", "c2")
	gone := closedTicket("TAAAA0003", "g1", "c3")
	for _, ticket := range []*domain.Ticket{due, later, gone} {
		require.NoError(t, repo.Create(ctx, ticket))
	}
	require.NoError(t, repo.MarkFinalized(ctx, due.ID, now, now.Add(-time.Minute)))
	require.NoError(t, repo.MarkFinalized(ctx, later.ID, now, now.Add(time.Hour)))
	require.NoError(t, repo.MarkFinalized(ctx, gone.ID, now, now.Add(-time.Hour)))
	require.NoError(t, repo.MarkChannelDeleted(ctx, gone.ID, now))

	result, err := repo.ListDueForDeletion(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, due.ID, result[0].ID)
}

func TestTemplates_ListForCategoryIsInclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Templates()
	billing, other := "cat-billing", "cat-other"

	for _, tpl := range []*domain.TicketTemplate{
		{GuildID: "g1", Name: "agnostic", Subject: "a", IsActive: true},
		{GuildID: "g1", Name: "billing", Subject: "b", CategoryID: &billing, IsActive: true},
		{GuildID: "g1", Name: "other", Subject: "c", CategoryID: &other, IsActive: true},
		{GuildID: "g1", Name: "inactive", Subject: "d", IsActive: false},
		{GuildID: "g2", Name: "foreign", Subject: "e", IsActive: true},
	} {
		require.NoError(t, repo.Create(ctx, tpl))
	}

	result, err := repo.ListForCategory(ctx, "g1", &billing)
	require.NoError(t, err)
	names := make([]string, 0, len(result))
	for _, tpl := range result {
		names = append(names, tpl.Name)
	}
	assert.Equal(t, []string{"agnostic", "billing"}, names)

	result, err = repo.ListForCategory(ctx, "g1", nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "agnostic", result[0].Name)
}

func TestRatings_WriteOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Ratings()

	require.NoError(t, repo.Create(ctx, &domain.TicketRating{TicketID: "t1", RaterUserID: "u1", Rating: 5}))
	err := repo.Create(ctx, &domain.TicketRating{TicketID: "t1", RaterUserID: "u1", Rating: 1})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stored, err := repo.GetByTicket(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Rating)
}

func TestGuildConfigs_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().GuildConfigs()

	_, err := repo.Get(ctx, "g1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.GuildConfig{GuildID: "g1", MaxOpenTickets: 3}))
	require.NoError(t, repo.Upsert(ctx, &domain.GuildConfig{GuildID: "g1", MaxOpenTickets: 5}))

	cfg, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxOpenTickets)
}
