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
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const archiveContainerName = "Ticket Archive"

// TicketService is the ticket state machine. Every transition is a pure step
// on domain.TicketState persisted with a conditional write, followed by
// best-effort channel side effects.
type TicketService struct {
	tickets     repository.TicketRepository
	configs     *GuildConfigService
	messenger   messaging.Messenger
	transcripts *TranscriptEngine
	ratings     *RatingGate
	events      publisher
	metrics     *observability.Metrics
	clock       clock.Clock
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Configs     *GuildConfigService
	Messenger   messaging.Messenger
	Transcripts *TranscriptEngine
	RatingGate  *RatingGate
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Clock       clock.Clock
	Logger      *zap.Logger
}

// TicketListFilter describes dashboard listing filters.
type TicketListFilter struct {
	CategoryID  *string
	RequesterID *string
	ClaimedByID *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Archived    *bool
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketDetailsPatch edits moderator-owned content; nil fields are unchanged.
type TicketDetailsPatch struct {
	Subject     *string
	Description *string
	CloseReason *string
}

// CloseResult is the outcome of Close or Resolve.
type CloseResult struct {
	Ticket     *domain.Ticket    `json:"ticket"`
	Transcript *TranscriptResult `json:"transcript"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		configs:     deps.Configs,
		messenger:   deps.Messenger,
		transcripts: deps.Transcripts,
		ratings:     deps.RatingGate,
		events:      publisher{dispatcher: deps.Dispatcher, clock: deps.Clock},
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      logger,
	}
}

// Get returns a ticket of the guild, including soft-deleted ones.
func (s *TicketService) Get(ctx context.Context, guildID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && ticket.GuildID != guildID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load ticket", err)
	}
	return ticket, nil
}

// GetByChannel returns the active ticket bound to channelID.
func (s *TicketService) GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByChannel(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load ticket", err)
	}
	return ticket, nil
}

// List returns the guild's non-deleted tickets matching filter.
func (s *TicketService) List(ctx context.Context, guildID string, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		GuildID:     guildID,
		CategoryID:  filter.CategoryID,
		RequesterID: filter.RequesterID,
		ClaimedByID: filter.ClaimedByID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Archived:    filter.Archived,
		SearchTerm:  filter.SearchTerm,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("list tickets", err)
	}
	return tickets, nil
}

// Stats counts the guild's non-deleted tickets by state.
func (s *TicketService) Stats(ctx context.Context, guildID string) (domain.TicketStats, error) {
	stats, err := s.tickets.Stats(ctx, guildID)
	if err != nil {
		return domain.TicketStats{}, apperrors.NewPersistenceFailure("ticket stats", err)
	}
	return stats, nil
}

// Claim assigns an open ticket to actorID and grants them channel access.
func (s *TicketService) Claim(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, guildID, ticketID, actorID, domain.TransitionClaim, nil,
		func(state domain.TicketState, now time.Time) (domain.TicketState, error) {
			return domain.Claim(state, actorID, now)
		})
	if err != nil {
		return nil, err
	}
	s.sideEffect(ticket, "grant claimer access", s.messenger.SetPermission(ctx, ticket.ChannelID, messaging.Overwrite{
		ID:     actorID,
		Target: messaging.TargetMember,
		Allow:  supportAccess,
	}))
	s.notify(ctx, ticket, fmt.Sprintf("Ticket claimed by <@%s>.", actorID))
	return ticket, nil
}

// Unclaim releases a claimed ticket.
func (s *TicketService) Unclaim(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, guildID, ticketID, actorID, domain.TransitionUnclaim, nil,
		func(state domain.TicketState, _ time.Time) (domain.TicketState, error) {
			return domain.Unclaim(state)
		})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ticket, fmt.Sprintf("Ticket released by <@%s>.", actorID))
	return ticket, nil
}

// Close ends the ticket as CLOSED, then captures the transcript and asks the
// requester for a rating.
func (s *TicketService) Close(ctx context.Context, guildID, ticketID, actorID string, reason *string) (*CloseResult, error) {
	return s.close(ctx, guildID, ticketID, actorID, domain.TicketStatusClosed, reason)
}

// Resolve is Close landing in RESOLVED.
func (s *TicketService) Resolve(ctx context.Context, guildID, ticketID, actorID string, reason *string) (*CloseResult, error) {
	return s.close(ctx, guildID, ticketID, actorID, domain.TicketStatusResolved, reason)
}

func (s *TicketService) close(ctx context.Context, guildID, ticketID, actorID string, status domain.TicketStatus, reason *string) (*CloseResult, error) {
	name := domain.TransitionClose
	if status == domain.TicketStatusResolved {
		name = domain.TransitionResolve
	}
	reason = trimmedOrNil(reason)
	ticket, err := s.transition(ctx, guildID, ticketID, actorID, name, reason,
		func(state domain.TicketState, now time.Time) (domain.TicketState, error) {
			return domain.Close(state, status, actorID, now, reason)
		})
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		s.logger.Warn("guild config unavailable for close fan-out", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	result := &CloseResult{Ticket: ticket, Transcript: s.transcripts.Run(ctx, ticket, cfg)}
	if err := s.ratings.Request(ctx, ticket); err != nil {
		s.logger.Warn("rating gate failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return result, nil
}

// Reopen returns a closed ticket to open and undoes the finalization lock:
// the lifecycle prefix is dropped from the channel name and the requester can
// write again. Any pending rating request and deletion schedule are dropped.
// A ticket whose channel was already swept cannot be reopened.
func (s *TicketService) Reopen(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, guildID, ticketID, actorID, domain.TransitionReopen, nil,
		func(state domain.TicketState, _ time.Time) (domain.TicketState, error) {
			return domain.Reopen(state)
		})
	if err != nil {
		return nil, err
	}
	s.unlockChannel(ctx, ticket)
	s.notify(ctx, ticket, fmt.Sprintf("Ticket reopened by <@%s>.", actorID))
	return ticket, nil
}

func (s *TicketService) unlockChannel(ctx context.Context, ticket *domain.Ticket) {
	channel, err := s.messenger.Channel(ctx, ticket.ChannelID)
	if err != nil {
		s.sideEffect(ticket, "load channel", err)
	} else if name := unprefixedChannelName(channel.Name); name != channel.Name {
		s.sideEffect(ticket, "rename channel", s.messenger.SetChannelName(ctx, channel.ID, name))
	}
	s.sideEffect(ticket, "reset everyone access", s.messenger.SetPermission(ctx, ticket.ChannelID, messaging.Overwrite{
		ID:     ticket.GuildID,
		Target: messaging.TargetRole,
		Deny:   messaging.PermViewChannel,
	}))
	s.sideEffect(ticket, "restore requester access", s.messenger.SetPermission(ctx, ticket.ChannelID, messaging.Overwrite{
		ID:     ticket.RequesterID,
		Target: messaging.TargetMember,
		Allow:  requesterAccess,
	}))
}

// Archive moves a closed ticket's channel into the archive container,
// creating the container on first use.
func (s *TicketService) Archive(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, guildID, ticketID, actorID, domain.TransitionArchive, nil,
		func(state domain.TicketState, now time.Time) (domain.TicketState, error) {
			return domain.Archive(state, actorID, now)
		})
	if err != nil {
		return nil, err
	}
	s.archiveChannel(ctx, ticket)
	return ticket, nil
}

// Unarchive clears the archived flag. The channel stays where it is.
func (s *TicketService) Unarchive(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	return s.transition(ctx, guildID, ticketID, actorID, domain.TransitionUnarchive, nil,
		func(state domain.TicketState, _ time.Time) (domain.TicketState, error) {
			return domain.Unarchive(state)
		})
}

// Delete soft-deletes the ticket. The channel is not touched.
func (s *TicketService) Delete(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error) {
	return s.transition(ctx, guildID, ticketID, actorID, domain.TransitionDelete, nil,
		func(state domain.TicketState, now time.Time) (domain.TicketState, error) {
			return domain.SoftDelete(state, actorID, now)
		})
}

// UpdatePriority changes the ticket's priority.
func (s *TicketService) UpdatePriority(ctx context.Context, guildID, ticketID, actorID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	ticket, err := s.loadActive(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	old := ticket.Priority
	if old == priority {
		return ticket, nil
	}
	ticket.Priority = priority
	if err := s.saveDetails(ctx, ticket); err != nil {
		return nil, err
	}
	s.events.publish(ctx, ticket, actorID, events.EventTicketPriorityChanged, events.TicketPriorityChangedPayload{
		OldPriority: old,
		NewPriority: priority,
	})
	return ticket, nil
}

// UpdateDetails edits subject, description or close reason.
func (s *TicketService) UpdateDetails(ctx context.Context, guildID, ticketID, actorID string, patch TicketDetailsPatch) (*domain.Ticket, error) {
	ticket, err := s.loadActive(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	oldValues, newValues := map[string]any{}, map[string]any{}
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		if subject == "" {
			return nil, apperrors.NewValidationError("subject cannot be empty", nil)
		}
		if subject != ticket.Subject {
			oldValues["subject"], newValues["subject"] = ticket.Subject, subject
			ticket.Subject = subject
		}
	}
	if patch.Description != nil {
		oldValues["description"], newValues["description"] = ticket.Description, trimmedOrNil(patch.Description)
		ticket.Description = trimmedOrNil(patch.Description)
	}
	if patch.CloseReason != nil {
		if !ticket.Status.IsTerminal() {
			return nil, apperrors.NewValidationError("close reason can only be set on a closed ticket", nil)
		}
		oldValues["close_reason"], newValues["close_reason"] = ticket.CloseReason, trimmedOrNil(patch.CloseReason)
		ticket.CloseReason = trimmedOrNil(patch.CloseReason)
	}
	if len(newValues) == 0 {
		return ticket, nil
	}
	if err := s.saveDetails(ctx, ticket); err != nil {
		return nil, err
	}
	s.events.publish(ctx, ticket, actorID, events.EventTicketDetailsChanged, events.TicketDetailsChangedPayload{
		Old: oldValues,
		New: newValues,
	})
	return ticket, nil
}

// transition loads the ticket, applies step to its state and persists the
// result only if the stored state is still the one that was read.
func (s *TicketService) transition(
	ctx context.Context,
	guildID, ticketID, actorID string,
	name domain.Transition,
	reason *string,
	step func(domain.TicketState, time.Time) (domain.TicketState, error),
) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	from := ticket.State()
	expected := ticket.Fingerprint()
	if name == domain.TransitionReopen && ticket.ChannelRemoved() {
		s.metrics.RecordTransition(string(name), "invalid")
		return nil, apperrors.NewInvalidTransition("closed with its channel removed", string(name))
	}

	next, err := step(from, now)
	if err != nil {
		s.metrics.RecordTransition(string(name), "invalid")
		return nil, err
	}
	ticket.ApplyState(next)
	if name == domain.TransitionReopen {
		ticket.RatingRequestedAt = nil
		ticket.FinalizedAt = nil
		ticket.ScheduledDeletionAt = nil
	}
	ticket.UpdatedAt = now

	if err := s.tickets.Transition(ctx, ticket, expected); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.metrics.RecordTransition(string(name), "conflict")
			return nil, apperrors.NewTransitionConflict(ticketID, string(name))
		}
		s.metrics.RecordTransition(string(name), "error")
		return nil, apperrors.NewPersistenceFailure(string(name)+" ticket", err)
	}
	s.metrics.RecordTransition(string(name), "ok")

	s.events.publish(ctx, ticket, actorID, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		Transition: name,
		From:       from.Label(),
		To:         next.Label(),
		Reason:     reason,
	})
	s.logger.Info("ticket transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", string(name)),
		zap.String("from", from.Label()),
		zap.String("to", next.Label()))
	return ticket, nil
}

func (s *TicketService) archiveChannel(ctx context.Context, ticket *domain.Ticket) {
	containerID, err := s.ensureArchiveContainer(ctx, ticket.GuildID)
	if err != nil {
		s.sideEffect(ticket, "ensure archive container", err)
	} else {
		s.sideEffect(ticket, "move channel to archive", s.messenger.MoveChannel(ctx, ticket.ChannelID, containerID))
	}
	channel, err := s.messenger.Channel(ctx, ticket.ChannelID)
	if err != nil {
		s.sideEffect(ticket, "load channel", err)
	} else {
		s.sideEffect(ticket, "rename channel", s.messenger.SetChannelName(ctx, channel.ID, prefixedChannelName(archivedPrefix, channel.Name)))
	}
	s.sideEffect(ticket, "revoke everyone access", s.messenger.SetPermission(ctx, ticket.ChannelID, messaging.Overwrite{
		ID:     ticket.GuildID,
		Target: messaging.TargetRole,
		Deny:   messaging.PermViewChannel,
	}))
}

func (s *TicketService) ensureArchiveContainer(ctx context.Context, guildID string) (string, error) {
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if cfg.ArchiveContainerID != "" {
		channel, err := s.messenger.Channel(ctx, cfg.ArchiveContainerID)
		if err == nil && channel.IsContainer {
			return channel.ID, nil
		}
		if err != nil && !errors.Is(err, messaging.ErrChannelNotFound) {
			return "", err
		}
	}
	containerID, err := s.messenger.CreateContainer(ctx, guildID, archiveContainerName, []messaging.Overwrite{
		{ID: guildID, Target: messaging.TargetRole, Deny: messaging.PermViewChannel},
	})
	if err != nil {
		return "", err
	}
	if err := s.configs.SetArchiveContainer(ctx, guildID, containerID); err != nil {
		s.logger.Warn("failed to save archive container", zap.String("guild_id", guildID), zap.Error(err))
	}
	return containerID, nil
}

func (s *TicketService) loadActive(ctx context.Context, guildID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsDeleted() {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) saveDetails(ctx context.Context, ticket *domain.Ticket) error {
	err := s.tickets.UpdateDetails(ctx, ticket)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	}
	if err != nil {
		return apperrors.NewPersistenceFailure("update ticket", err)
	}
	return nil
}

func (s *TicketService) notify(ctx context.Context, ticket *domain.Ticket, text string) {
	_, err := s.messenger.SendMessage(ctx, ticket.ChannelID, messaging.OutgoingMessage{Content: text})
	s.sideEffect(ticket, "send channel notice", err)
}

// sideEffect logs a failed channel operation; it never fails the transition.
func (s *TicketService) sideEffect(ticket *domain.Ticket, op string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("ticket channel side effect failed",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel_id", ticket.ChannelID),
		zap.Error(apperrors.NewExternalDeliveryFailure(op, err)))
}
