package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

func TestPanelPublish(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)
	ctx := context.Background()
	panel := NewPanelPublisher(h.configs, h.store.Categories(), h.messenger)

	_, err := panel.Publish(ctx, testGuild, "lobby")
	require.NoError(t, err)
	sent := h.sentTo("lobby")
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Buttons, 1)
	assert.Equal(t, customid.Open(nil), sent[0].Buttons[0].ID)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "Support tickets", sent[0].Embeds[0].Title)

	billing, err := h.categories.Create(ctx, testGuild, CategoryInput{Name: "Billing", Emoji: "💳", IsActive: true})
	require.NoError(t, err)
	_, err = h.categories.Create(ctx, testGuild, CategoryInput{Name: "Retired", IsActive: false})
	require.NoError(t, err)

	_, err = panel.Publish(ctx, testGuild, "lobby")
	require.NoError(t, err)
	sent = h.sentTo("lobby")
	require.Len(t, sent, 2)
	require.Len(t, sent[1].Buttons, 1)
	assert.Equal(t, customid.Open(&billing.ID), sent[1].Buttons[0].ID)
	assert.Equal(t, "💳 Billing", sent[1].Buttons[0].Label)
}

func TestPanelPublishRejectsContainers(t *testing.T) {
	h := newHarness(t)
	h.configure(t)
	h.allowMessaging(nil)

	_, err := NewPanelPublisher(h.configs, h.store.Categories(), h.messenger).Publish(context.Background(), testGuild, testContainer)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
