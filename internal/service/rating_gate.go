package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/events"
	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// RatingGate asks the requester for feedback after close and holds final
// teardown until the rating arrives.
type RatingGate struct {
	tickets   repository.TicketRepository
	ratings   repository.RatingRepository
	configs   *GuildConfigService
	messenger messaging.Messenger
	events    publisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewRatingGate constructs the gate.
func NewRatingGate(
	tickets repository.TicketRepository,
	ratings repository.RatingRepository,
	configs *GuildConfigService,
	messenger messaging.Messenger,
	dispatcher events.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *RatingGate {
	return &RatingGate{
		tickets:   tickets,
		ratings:   ratings,
		configs:   configs,
		messenger: messenger,
		events:    publisher{dispatcher: dispatcher, clock: clk},
		clock:     clk,
		logger:    logger,
	}
}

// Request posts the rating prompt when the requester is still reachable and
// stamps ratingRequestedAt. A ticket that was already rated (before a reopen)
// or whose requester left is finalized right away.
func (g *RatingGate) Request(ctx context.Context, ticket *domain.Ticket) error {
	rated, err := g.Rating(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if rated != nil {
		return g.finalizeInto(ctx, ticket)
	}
	if _, err := g.messenger.Member(ctx, ticket.GuildID, ticket.RequesterID); err != nil {
		if !errors.Is(err, messaging.ErrMemberNotFound) {
			g.logger.Warn("requester lookup failed, finalizing without rating",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		return g.finalizeInto(ctx, ticket)
	}

	buttons := make([]messaging.Button, 0, domain.MaxRating)
	for n := domain.MinRating; n <= domain.MaxRating; n++ {
		buttons = append(buttons, messaging.Button{
			ID:    customid.Rate(ticket.ID, n),
			Label: strings.Repeat("⭐", n),
			Style: messaging.ButtonSecondary,
		})
	}
	_, err = g.messenger.SendMessage(ctx, ticket.ChannelID, messaging.OutgoingMessage{
		Content: fmt.Sprintf("<@%s>", ticket.RequesterID),
		Embeds: []messaging.Embed{{
			Title:       "How did we do?",
			Description: fmt.Sprintf("Ticket %s is closed. Please rate the support you received.", ticket.TicketNumber),
		}},
		Buttons: buttons,
	})
	if err != nil {
		g.logger.Warn("failed to post rating prompt, finalizing without rating",
			zap.String("ticket_id", ticket.ID),
			zap.Error(apperrors.NewExternalDeliveryFailure("send rating prompt", err)))
		return g.finalizeInto(ctx, ticket)
	}

	now := g.clock.Now()
	if err := g.tickets.SetRatingRequested(ctx, ticket.ID, now); err != nil {
		return apperrors.NewPersistenceFailure("stamp rating request", err)
	}
	ticket.RatingRequestedAt = &now
	return nil
}

// Submit records the requester's rating. It does not finalize the ticket.
func (g *RatingGate) Submit(ctx context.Context, ticketID, raterID string, rating int, feedback *string) (*domain.TicketRating, error) {
	ticket, err := g.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != raterID {
		return nil, apperrors.NewNotOwner(ticketID)
	}
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5",
			map[string]any{"min": domain.MinRating, "max": domain.MaxRating})
	}
	switch state := ticket.State(); state.(type) {
	case domain.ClosedState, domain.ArchivedState:
	default:
		return nil, apperrors.NewInvalidTransition(state.Label(), "rate")
	}

	record := &domain.TicketRating{
		TicketID:    ticket.ID,
		RaterUserID: raterID,
		Rating:      rating,
		Feedback:    trimmedOrNil(feedback),
	}
	if err := g.ratings.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewAlreadyRated(ticketID)
		}
		return nil, apperrors.NewPersistenceFailure("save rating", err)
	}
	g.events.publish(ctx, ticket, raterID, events.EventTicketRated, events.TicketRatedPayload{
		Rating:   record.Rating,
		Feedback: record.Feedback,
	})
	return record, nil
}

// Rating returns the rating recorded for ticketID, or nil when none exists.
func (g *RatingGate) Rating(ctx context.Context, ticketID string) (*domain.TicketRating, error) {
	rating, err := g.ratings.GetByTicket(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load rating", err)
	}
	return rating, nil
}

// Finalize locks the channel and schedules its deletion after the guild's
// auto-close window. Finalizing twice is a no-op.
func (g *RatingGate) Finalize(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := g.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := g.finalizeInto(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (g *RatingGate) finalizeInto(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.FinalizedAt != nil {
		return nil
	}
	switch state := ticket.State(); state.(type) {
	case domain.ClosedState, domain.ArchivedState:
	default:
		return apperrors.NewInvalidTransition(state.Label(), "finalize")
	}
	cfg, err := g.configs.Get(ctx, ticket.GuildID)
	if err != nil {
		return err
	}

	now := g.clock.Now()
	deleteAt := now.Add(time.Duration(cfg.AutoCloseHours) * time.Hour)
	if err := g.tickets.MarkFinalized(ctx, ticket.ID, now, deleteAt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return g.settleConflict(ctx, ticket)
		}
		return apperrors.NewPersistenceFailure("finalize ticket", err)
	}
	ticket.FinalizedAt = &now
	ticket.ScheduledDeletionAt = &deleteAt

	g.lockChannel(ctx, ticket)

	g.events.publish(ctx, ticket, "", events.EventTicketFinalized, events.TicketFinalizedPayload{
		ScheduledDeletionAt: deleteAt,
	})
	g.logger.Info("ticket finalized",
		zap.String("ticket_id", ticket.ID),
		zap.Time("scheduled_deletion_at", deleteAt))
	return nil
}

// settleConflict rereads a ticket whose finalize write matched nothing. A
// concurrent finalize is success; a concurrent reopen or delete is a conflict.
func (g *RatingGate) settleConflict(ctx context.Context, ticket *domain.Ticket) error {
	current, err := g.load(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if current.FinalizedAt == nil {
		return apperrors.NewTransitionConflict(ticket.ID, "finalize")
	}
	*ticket = *current
	return nil
}

// lockChannel renames the channel with the closed- prefix, hides it from
// everyone and leaves the requester read-only. Failures are logged.
func (g *RatingGate) lockChannel(ctx context.Context, ticket *domain.Ticket) {
	fail := func(op string, err error) {
		g.logger.Warn("finalize channel update failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(apperrors.NewExternalDeliveryFailure(op, err)))
	}
	channel, err := g.messenger.Channel(ctx, ticket.ChannelID)
	if err != nil {
		fail("load channel", err)
		return
	}
	if err := g.messenger.SetChannelName(ctx, channel.ID, prefixedChannelName(closedPrefix, channel.Name)); err != nil {
		fail("rename channel", err)
	}
	everyone := messaging.Overwrite{
		ID:     ticket.GuildID,
		Target: messaging.TargetRole,
		Deny:   messaging.PermViewChannel | messaging.PermSendMessages,
	}
	if err := g.messenger.SetPermission(ctx, channel.ID, everyone); err != nil {
		fail("revoke everyone access", err)
	}
	requester := messaging.Overwrite{
		ID:     ticket.RequesterID,
		Target: messaging.TargetMember,
		Allow:  messaging.PermViewChannel | messaging.PermReadHistory,
		Deny:   messaging.PermSendMessages,
	}
	if err := g.messenger.SetPermission(ctx, channel.ID, requester); err != nil {
		fail("lock requester", err)
	}
}

func (g *RatingGate) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := g.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load ticket", err)
	}
	return ticket, nil
}
