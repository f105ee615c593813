package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// TemplateRepository manages ticket templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.TicketTemplate) error
	Update(ctx context.Context, tpl *domain.TicketTemplate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.TicketTemplate, error)
	ListByGuild(ctx context.Context, guildID string) ([]domain.TicketTemplate, error)
	// ListForCategory returns active templates scoped to categoryID plus the
	// category-agnostic ones. A nil categoryID returns only agnostic templates.
	ListForCategory(ctx context.Context, guildID string, categoryID *string) ([]domain.TicketTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository builds the repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, guild_id, category_id, name, subject, description_text, is_active, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tpl *domain.TicketTemplate) error {
	const query = `
        INSERT INTO ticket_templates (guild_id, category_id, name, subject, description_text, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tpl.GuildID,
		tpl.CategoryID,
		tpl.Name,
		tpl.Subject,
		tpl.DescriptionText,
		tpl.IsActive,
	).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)
}

func (r *templateRepository) Update(ctx context.Context, tpl *domain.TicketTemplate) error {
	const query = `
        UPDATE ticket_templates SET category_id=$1, name=$2, subject=$3, description_text=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		tpl.CategoryID,
		tpl.Name,
		tpl.Subject,
		tpl.DescriptionText,
		tpl.IsActive,
		tpl.ID,
	).Scan(&tpl.UpdatedAt)
	return mapNotFound(err)
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.TicketTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM ticket_templates WHERE id=$1`
	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return tpl, nil
}

func (r *templateRepository) ListByGuild(ctx context.Context, guildID string) ([]domain.TicketTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM ticket_templates WHERE guild_id=$1 ORDER BY name ASC`
	return r.list(ctx, query, guildID)
}

func (r *templateRepository) ListForCategory(ctx context.Context, guildID string, categoryID *string) ([]domain.TicketTemplate, error) {
	if categoryID == nil {
		query := `SELECT ` + templateColumns + ` FROM ticket_templates
            WHERE guild_id=$1 AND is_active = TRUE AND category_id IS NULL ORDER BY name ASC`
		return r.list(ctx, query, guildID)
	}
	query := `SELECT ` + templateColumns + ` FROM ticket_templates
        WHERE guild_id=$1 AND is_active = TRUE AND (category_id=$2 OR category_id IS NULL) ORDER BY name ASC`
	return r.list(ctx, query, guildID, *categoryID)
}

func (r *templateRepository) list(ctx context.Context, query string, args ...any) ([]domain.TicketTemplate, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tpl)
	}
	return result, rows.Err()
}

func scanTemplate(row pgx.Row) (*domain.TicketTemplate, error) {
	var tpl domain.TicketTemplate
	if err := row.Scan(
		&tpl.ID,
		&tpl.GuildID,
		&tpl.CategoryID,
		&tpl.Name,
		&tpl.Subject,
		&tpl.DescriptionText,
		&tpl.IsActive,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}
