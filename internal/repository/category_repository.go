package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// CategoryRepository manages ticket category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.TicketCategory) error
	Update(ctx context.Context, category *domain.TicketCategory) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.TicketCategory, error)
	ListByGuild(ctx context.Context, guildID string, activeOnly bool) ([]domain.TicketCategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, guild_id, name, emoji, channel_container_id, support_role_id, required_role_ids,
       auto_response, is_active, created_at, updated_at`

func (r *categoryRepository) Create(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        INSERT INTO ticket_categories (guild_id, name, emoji, channel_container_id, support_role_id, required_role_ids, auto_response, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		category.GuildID,
		category.Name,
		category.Emoji,
		category.ChannelContainerID,
		category.SupportRoleID,
		roleIDs(category.RequiredRoleIDs),
		category.AutoResponse,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return mapUnique(err)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        UPDATE ticket_categories SET name=$1, emoji=$2, channel_container_id=$3, support_role_id=$4,
            required_role_ids=$5, auto_response=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		category.Name,
		category.Emoji,
		category.ChannelContainerID,
		category.SupportRoleID,
		roleIDs(category.RequiredRoleIDs),
		category.AutoResponse,
		category.IsActive,
		category.ID,
	).Scan(&category.UpdatedAt)
	return mapUnique(mapNotFound(err))
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.TicketCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE id=$1`
	category, err := scanCategory(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return category, nil
}

func (r *categoryRepository) ListByGuild(ctx context.Context, guildID string, activeOnly bool) ([]domain.TicketCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM ticket_categories WHERE guild_id=$1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketCategory
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}

func scanCategory(row pgx.Row) (*domain.TicketCategory, error) {
	var category domain.TicketCategory
	if err := row.Scan(
		&category.ID,
		&category.GuildID,
		&category.Name,
		&category.Emoji,
		&category.ChannelContainerID,
		&category.SupportRoleID,
		&category.RequiredRoleIDs,
		&category.AutoResponse,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

// roleIDs keeps the column NOT NULL when no roles are required.
func roleIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
