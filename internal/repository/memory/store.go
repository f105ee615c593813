// Package memory provides in-memory implementations of every repository.
// It backs the tests and DSN-less development runs.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

// Store holds all data in memory behind a single lock.
type Store struct {
	mu         sync.RWMutex
	tickets    map[string]*domain.Ticket
	categories map[string]*domain.TicketCategory
	templates  map[string]*domain.TicketTemplate
	ratings    map[string]*domain.TicketRating
	messages   []domain.TicketMessage
	history    []domain.TicketHistory
	configs    map[string]*domain.GuildConfig
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tickets:    make(map[string]*domain.Ticket),
		categories: make(map[string]*domain.TicketCategory),
		templates:  make(map[string]*domain.TicketTemplate),
		ratings:    make(map[string]*domain.TicketRating),
		configs:    make(map[string]*domain.GuildConfig),
		now:        time.Now,
	}
}

// WithClock makes the store stamp created/updated times from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) Categories() repository.CategoryRepository { return categoryRepo{s} }
func (s *Store) Templates() repository.TemplateRepository { return templateRepo{s} }
func (s *Store) Ratings() repository.RatingRepository { return ratingRepo{s} }
func (s *Store) Messages() repository.TicketMessageRepository { return messageRepo{s} }
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }
func (s *Store) GuildConfigs() repository.GuildConfigRepository { return configRepo{s} }

func newID() string {
	return uuid.NewString()
}
