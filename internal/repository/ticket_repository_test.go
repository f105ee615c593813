package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

// openTestPool connects to TEST_POSTGRES_DSN and applies the schema.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	return pool
}

func newTicket(t *testing.T, guildID string) *domain.Ticket {
	t.Helper()
	number, err := domain.NewTicketNumber()
	require.NoError(t, err)
	return &domain.Ticket{
		TicketNumber:         number,
		GuildID:              guildID,
		RequesterID:          "user-ada",
		RequesterDisplayName: "Ada",
		ChannelID:            "chan-" + uuid.NewString(),
		Status:               domain.TicketStatusOpen,
		Priority:             domain.TicketPriorityNormal,
		Subject:              "Refund",
	}
}

func TestTicketRepositoryTransitionIsConditional(t *testing.T) {
	pool := openTestPool(t)
	repo := repository.NewTicketRepository(pool)
	ctx := context.Background()
	guildID := "guild-" + uuid.NewString()

	ticket := newTicket(t, guildID)
	require.NoError(t, repo.Create(ctx, ticket))
	require.NotEmpty(t, ticket.ID)

	loaded, err := repo.GetByChannel(ctx, ticket.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketNumber, loaded.TicketNumber)

	expected := loaded.Fingerprint()
	now := time.Now().UTC().Truncate(time.Microsecond)
	claimed, err := domain.Claim(loaded.State(), "mod-1", now)
	require.NoError(t, err)
	loaded.ApplyState(claimed)
	loaded.UpdatedAt = now
	require.NoError(t, repo.Transition(ctx, loaded, expected))

	// A second writer still holding the OPEN fingerprint loses.
	assert.ErrorIs(t, repo.Transition(ctx, loaded, expected), repository.ErrConflict)

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClaimed, stored.Status)
	require.NotNil(t, stored.ClaimedByID)
	assert.Equal(t, "mod-1", *stored.ClaimedByID)

	stats, err := repo.Stats(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Claimed)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketRepositoryDeletionSchedule(t *testing.T) {
	pool := openTestPool(t)
	repo := repository.NewTicketRepository(pool)
	ctx := context.Background()

	open := newTicket(t, "guild-"+uuid.NewString())
	require.NoError(t, repo.Create(ctx, open))
	now := time.Now().UTC()
	assert.ErrorIs(t, repo.MarkFinalized(ctx, open.ID, now, now.Add(-time.Second)), repository.ErrConflict)

	ticket := newTicket(t, "guild-"+uuid.NewString())
	ticket.Status = domain.TicketStatusClosed
	require.NoError(t, repo.Create(ctx, ticket))

	require.NoError(t, repo.MarkFinalized(ctx, ticket.ID, now, now.Add(-time.Second)))
	assert.ErrorIs(t, repo.MarkFinalized(ctx, ticket.ID, now, now), repository.ErrConflict)

	due, err := repo.ListDueForDeletion(ctx, now, 1000)
	require.NoError(t, err)
	assert.True(t, containsTicket(due, ticket.ID))

	require.NoError(t, repo.MarkChannelDeleted(ctx, ticket.ID, now))
	due, err = repo.ListDueForDeletion(ctx, now, 1000)
	require.NoError(t, err)
	assert.False(t, containsTicket(due, ticket.ID))
	assert.False(t, containsTicket(due, open.ID))

	// A swept channel blocks reopen at the storage layer too.
	expected := domain.StateFingerprint{Status: domain.TicketStatusClosed}
	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	reopened, err := domain.Reopen(stored.State())
	require.NoError(t, err)
	stored.ApplyState(reopened)
	assert.ErrorIs(t, repo.Transition(ctx, stored, expected), repository.ErrConflict)
}

func containsTicket(tickets []domain.Ticket, id string) bool {
	for i := range tickets {
		if tickets[i].ID == id {
			return true
		}
	}
	return false
}
