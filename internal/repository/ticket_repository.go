package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// TicketFilter captures dashboard search parameters. Soft-deleted tickets are
// excluded unless IncludeDeleted is set.
type TicketFilter struct {
	GuildID        string
	CategoryID     *string
	RequesterID    *string
	ClaimedByID    *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Archived       *bool
	IncludeDeleted bool
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountOpenByRequester(ctx context.Context, guildID, requesterID string) (int, error)
	Stats(ctx context.Context, guildID string) (domain.TicketStats, error)
	// Transition writes the lifecycle columns of ticket only if the stored
	// row still matches expected. It returns ErrConflict otherwise.
	Transition(ctx context.Context, ticket *domain.Ticket, expected domain.StateFingerprint) error
	UpdateDetails(ctx context.Context, ticket *domain.Ticket) error
	SetRatingRequested(ctx context.Context, id string, at time.Time) error
	// MarkFinalized stamps finalization once on a closed, non-deleted ticket.
	// It returns ErrConflict when the ticket was already finalized or is no
	// longer closed.
	MarkFinalized(ctx context.Context, id string, at, deleteAt time.Time) error
	MarkChannelDeleted(ctx context.Context, id string, at time.Time) error
	ListDueForDeletion(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, guild_id, category_id, requester_id, requester_display_name, channel_id,
       status, priority, subject, description, close_reason, archived,
       claimed_by_id, claimed_at, closed_by_id, closed_at, archived_by_id, archived_at, deleted_by_id, deleted_at,
       rating_requested_at, finalized_at, scheduled_deletion_at, channel_deleted_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, guild_id, category_id, requester_id, requester_display_name, channel_id,
            status, priority, subject, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.GuildID,
		ticket.CategoryID,
		ticket.RequesterID,
		ticket.RequesterDisplayName,
		ticket.ChannelID,
		ticket.Status,
		ticket.Priority,
		ticket.Subject,
		ticket.Description,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapUnique(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1 AND deleted_at IS NULL
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	args := []any{filter.GuildID}
	clauses := []string{"guild_id=$1"}

	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.ClaimedByID != nil {
		args = append(args, *filter.ClaimedByID)
		clauses = append(clauses, fmt.Sprintf("claimed_by_id=$%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		clauses = append(clauses, fmt.Sprintf("archived=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountOpenByRequester(ctx context.Context, guildID, requesterID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE guild_id=$1 AND requester_id=$2 AND status IN ('OPEN','CLAIMED') AND deleted_at IS NULL`
	var count int
	if err := r.pool.QueryRow(ctx, query, guildID, requesterID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) Stats(ctx context.Context, guildID string) (domain.TicketStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='OPEN'),
               COUNT(*) FILTER (WHERE status='CLAIMED'),
               COUNT(*) FILTER (WHERE status='CLOSED'),
               COUNT(*) FILTER (WHERE status='RESOLVED'),
               COUNT(*) FILTER (WHERE archived)
        FROM tickets WHERE guild_id=$1 AND deleted_at IS NULL`
	var stats domain.TicketStats
	err := r.pool.QueryRow(ctx, query, guildID).Scan(
		&stats.Total, &stats.Open, &stats.Claimed, &stats.Closed, &stats.Resolved, &stats.Archived)
	return stats, err
}

func (r *ticketRepository) Transition(ctx context.Context, ticket *domain.Ticket, expected domain.StateFingerprint) error {
	const query = `
        UPDATE tickets SET status=$1, archived=$2, close_reason=$3,
            claimed_by_id=$4, claimed_at=$5, closed_by_id=$6, closed_at=$7,
            archived_by_id=$8, archived_at=$9, deleted_by_id=$10, deleted_at=$11,
            rating_requested_at=$12, finalized_at=$13, scheduled_deletion_at=$14, updated_at=$15
        WHERE id=$16 AND status=$17 AND archived=$18 AND (deleted_at IS NOT NULL)=$19
            AND (channel_deleted_at IS NOT NULL)=$20`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Archived,
		ticket.CloseReason,
		ticket.ClaimedByID,
		ticket.ClaimedAt,
		ticket.ClosedByID,
		ticket.ClosedAt,
		ticket.ArchivedByID,
		ticket.ArchivedAt,
		ticket.DeletedByID,
		ticket.DeletedAt,
		ticket.RatingRequestedAt,
		ticket.FinalizedAt,
		ticket.ScheduledDeletionAt,
		ticket.UpdatedAt,
		ticket.ID,
		expected.Status,
		expected.Archived,
		expected.Deleted,
		expected.ChannelDeleted,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ticketRepository) UpdateDetails(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, close_reason=$4, updated_at=NOW()
        WHERE id=$5 AND deleted_at IS NULL
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.CloseReason,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return mapNotFound(err)
}

func (r *ticketRepository) SetRatingRequested(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE tickets SET rating_requested_at=$1, updated_at=NOW() WHERE id=$2`, at, id)
}

func (r *ticketRepository) MarkFinalized(ctx context.Context, id string, at, deleteAt time.Time) error {
	const query = `
        UPDATE tickets SET finalized_at=$1, scheduled_deletion_at=$2, updated_at=NOW()
        WHERE id=$3 AND finalized_at IS NULL AND status IN ('CLOSED','RESOLVED') AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, deleteAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ticketRepository) MarkChannelDeleted(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE tickets SET channel_deleted_at=$1, updated_at=NOW() WHERE id=$2`, at, id)
}

func (r *ticketRepository) ListDueForDeletion(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE scheduled_deletion_at IS NOT NULL AND scheduled_deletion_at <= $1 AND channel_deleted_at IS NULL
            AND status IN ('CLOSED','RESOLVED')
        ORDER BY scheduled_deletion_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.GuildID,
		&ticket.CategoryID,
		&ticket.RequesterID,
		&ticket.RequesterDisplayName,
		&ticket.ChannelID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CloseReason,
		&ticket.Archived,
		&ticket.ClaimedByID,
		&ticket.ClaimedAt,
		&ticket.ClosedByID,
		&ticket.ClosedAt,
		&ticket.ArchivedByID,
		&ticket.ArchivedAt,
		&ticket.DeletedByID,
		&ticket.DeletedAt,
		&ticket.RatingRequestedAt,
		&ticket.FinalizedAt,
		&ticket.ScheduledDeletionAt,
		&ticket.ChannelDeletedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
