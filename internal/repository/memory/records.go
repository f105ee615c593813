package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

type ratingRepo struct{ s *Store }

func ratingKey(ticketID, raterID string) string {
	return ticketID + "|" + raterID
}

func (r ratingRepo) Create(_ context.Context, rating *domain.TicketRating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := ratingKey(rating.TicketID, rating.RaterUserID)
	if _, exists := r.s.ratings[key]; exists {
		return repository.ErrDuplicate
	}
	rating.ID = newID()
	rating.CreatedAt = r.s.now()
	stored := *rating
	r.s.ratings[key] = &stored
	return nil
}

func (r ratingRepo) GetByTicket(_ context.Context, ticketID string) (*domain.TicketRating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rating := range r.s.ratings {
		if rating.TicketID == ticketID {
			clone := *rating
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg.ID = newID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.s.now()
	}
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r messageRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var result []domain.TicketMessage
	for _, msg := range r.s.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
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

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	history.ID = newID()
	history.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketHistory
	for _, entry := range r.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type configRepo struct{ s *Store }

func (r configRepo) Get(_ context.Context, guildID string) (*domain.GuildConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cfg, ok := r.s.configs[guildID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (r configRepo) Upsert(_ context.Context, cfg *domain.GuildConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg.UpdatedAt = r.s.now()
	stored := *cfg
	r.s.configs[cfg.GuildID] = &stored
	return nil
}
