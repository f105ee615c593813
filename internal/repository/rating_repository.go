package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// RatingRepository stores requester feedback. (ticket_id, rater_user_id) is
// write-once; a second insert returns ErrDuplicate.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.TicketRating) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.TicketRating, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository builds repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

func (r *ratingRepository) Create(ctx context.Context, rating *domain.TicketRating) error {
	const query = `
        INSERT INTO ticket_ratings (ticket_id, rater_user_id, rating, feedback)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (ticket_id, rater_user_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		rating.TicketID,
		rating.RaterUserID,
		rating.Rating,
		rating.Feedback,
	).Scan(&rating.ID, &rating.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return mapUnique(err)
}

func (r *ratingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketRating, error) {
	const query = `
        SELECT id, ticket_id, rater_user_id, rating, feedback, created_at
        FROM ticket_ratings WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT 1`
	var rating domain.TicketRating
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.RaterUserID,
		&rating.Rating,
		&rating.Feedback,
		&rating.CreatedAt,
	); err != nil {
		return nil, mapNotFound(err)
	}
	return &rating, nil
}
