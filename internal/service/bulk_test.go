package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/domain"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

func TestBulkArchiveOnlyAffectsClosedTickets(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()

	category, err := h.categories.Create(ctx, testGuild, CategoryInput{Name: "General help", IsActive: true})
	require.NoError(t, err)

	var open, closed []*domain.Ticket
	for i := 0; i < 5; i++ {
		ticket := h.open(t, "Question", &category.ID)
		if i < 2 {
			_, err := h.tickets.Close(ctx, testGuild, ticket.ID, testModerator, nil)
			require.NoError(t, err)
			closed = append(closed, ticket)
			continue
		}
		open = append(open, ticket)
	}
	other := h.open(t, "Unrelated", nil)

	result, err := h.bulk.Apply(ctx, testGuild, category.ID, BulkArchive, testModerator)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failures, 3)
	for _, f := range result.Failures {
		assert.Equal(t, apperrors.CodeInvalidTransition, f.Code)
	}

	for _, ticket := range closed {
		stored, err := h.tickets.Get(ctx, testGuild, ticket.ID)
		require.NoError(t, err)
		assert.True(t, stored.Archived)
	}
	for _, ticket := range append(open, other) {
		stored, err := h.tickets.Get(ctx, testGuild, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		assert.False(t, stored.Archived)
	}
}

func TestBulkDeleteSkipsAlreadyDeleted(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()

	category, err := h.categories.Create(ctx, testGuild, CategoryInput{Name: "Spam", IsActive: true})
	require.NoError(t, err)
	first := h.open(t, "One", &category.ID)
	h.open(t, "Two", &category.ID)
	_, err = h.tickets.Delete(ctx, testGuild, first.ID, testModerator)
	require.NoError(t, err)

	result, err := h.bulk.Apply(ctx, testGuild, category.ID, BulkDelete, testModerator)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.Failures)
}

func TestBulkRejectsUnknownActionAndForeignCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.bulk.Apply(ctx, testGuild, "cat", "purge", testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	category, err := h.categories.Create(ctx, "guild-2", CategoryInput{Name: "Theirs", IsActive: true})
	require.NoError(t, err)
	_, err = h.bulk.Apply(ctx, testGuild, category.ID, BulkArchive, testModerator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
