package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	ticket.ID = newID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	r.s.tickets[ticket.ID] = &stored
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *ticket
	return &clone, nil
}

func (r ticketRepo) GetByChannel(_ context.Context, channelID string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.ChannelID != channelID || ticket.DeletedAt != nil {
			continue
		}
		if found == nil || ticket.CreatedAt.After(found.CreatedAt) {
			found = ticket
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	clone := *found
	return &clone, nil
}

func (r ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if matches(ticket, filter) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].TicketNumber < result[j].TicketNumber
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func matches(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if ticket.GuildID != filter.GuildID {
		return false
	}
	if !filter.IncludeDeleted && ticket.DeletedAt != nil {
		return false
	}
	if filter.CategoryID != nil && (ticket.CategoryID == nil || *ticket.CategoryID != *filter.CategoryID) {
		return false
	}
	if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
		return false
	}
	if filter.ClaimedByID != nil && (ticket.ClaimedByID == nil || *ticket.ClaimedByID != *filter.ClaimedByID) {
		return false
	}
	if filter.Archived != nil && ticket.Archived != *filter.Archived {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" && !strings.Contains(strings.ToLower(ticket.Subject), term) &&
			!strings.Contains(strings.ToLower(ticket.TicketNumber), term) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

func (r ticketRepo) CountOpenByRequester(_ context.Context, guildID, requesterID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, ticket := range r.s.tickets {
		if ticket.GuildID == guildID && ticket.RequesterID == requesterID && ticket.DeletedAt == nil &&
			(ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusClaimed) {
			count++
		}
	}
	return count, nil
}

func (r ticketRepo) Stats(_ context.Context, guildID string) (domain.TicketStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var stats domain.TicketStats
	for _, ticket := range r.s.tickets {
		if ticket.GuildID != guildID || ticket.DeletedAt != nil {
			continue
		}
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClaimed:
			stats.Claimed++
		case domain.TicketStatusClosed:
			stats.Closed++
		case domain.TicketStatusResolved:
			stats.Resolved++
		}
		if ticket.Archived {
			stats.Archived++
		}
	}
	return stats, nil
}

func (r ticketRepo) Transition(_ context.Context, ticket *domain.Ticket, expected domain.StateFingerprint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok || stored.Fingerprint() != expected {
		return repository.ErrConflict
	}
	stored.Status = ticket.Status
	stored.Archived = ticket.Archived
	stored.CloseReason = ticket.CloseReason
	stored.ClaimedByID, stored.ClaimedAt = ticket.ClaimedByID, ticket.ClaimedAt
	stored.ClosedByID, stored.ClosedAt = ticket.ClosedByID, ticket.ClosedAt
	stored.ArchivedByID, stored.ArchivedAt = ticket.ArchivedByID, ticket.ArchivedAt
	stored.DeletedByID, stored.DeletedAt = ticket.DeletedByID, ticket.DeletedAt
	stored.RatingRequestedAt = ticket.RatingRequestedAt
	stored.FinalizedAt = ticket.FinalizedAt
	stored.ScheduledDeletionAt = ticket.ScheduledDeletionAt
	stored.UpdatedAt = ticket.UpdatedAt
	return nil
}

func (r ticketRepo) UpdateDetails(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok || stored.DeletedAt != nil {
		return repository.ErrNotFound
	}
	stored.Subject = ticket.Subject
	stored.Description = ticket.Description
	stored.Priority = ticket.Priority
	stored.CloseReason = ticket.CloseReason
	stored.UpdatedAt = r.s.now()
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r ticketRepo) SetRatingRequested(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(t *domain.Ticket) error {
		t.RatingRequestedAt = &at
		return nil
	})
}

func (r ticketRepo) MarkFinalized(_ context.Context, id string, at, deleteAt time.Time) error {
	return r.mutate(id, func(t *domain.Ticket) error {
		if t.FinalizedAt != nil || !t.Status.IsTerminal() || t.DeletedAt != nil {
			return repository.ErrConflict
		}
		t.FinalizedAt = &at
		t.ScheduledDeletionAt = &deleteAt
		return nil
	})
}

func (r ticketRepo) MarkChannelDeleted(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(t *domain.Ticket) error {
		t.ChannelDeletedAt = &at
		return nil
	})
}

func (r ticketRepo) mutate(id string, fn func(*domain.Ticket) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(stored); err != nil {
		return err
	}
	stored.UpdatedAt = r.s.now()
	return nil
}

func (r ticketRepo) ListDueForDeletion(_ context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.ScheduledDeletionAt == nil || ticket.ChannelDeletedAt != nil || !ticket.Status.IsTerminal() {
			continue
		}
		if ticket.ScheduledDeletionAt.After(now) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledDeletionAt.Before(*result[j].ScheduledDeletionAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
