package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

// GuildConfigRepository stores one ticket configuration row per guild.
type GuildConfigRepository interface {
	Get(ctx context.Context, guildID string) (*domain.GuildConfig, error)
	Upsert(ctx context.Context, cfg *domain.GuildConfig) error
}

type guildConfigRepository struct {
	pool *pgxpool.Pool
}

// NewGuildConfigRepository builds repository.
func NewGuildConfigRepository(pool *pgxpool.Pool) GuildConfigRepository {
	return &guildConfigRepository{pool: pool}
}

func (r *guildConfigRepository) Get(ctx context.Context, guildID string) (*domain.GuildConfig, error) {
	const query = `
        SELECT guild_id, channel_container_id, support_role_id, transcript_channel_id, archive_container_id,
               auto_close_hours, max_open_tickets, welcome_message, panel_title, panel_description, panel_color, updated_at
        FROM guild_ticket_configs WHERE guild_id=$1`
	var cfg domain.GuildConfig
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(
		&cfg.GuildID,
		&cfg.ChannelContainerID,
		&cfg.SupportRoleID,
		&cfg.TranscriptChannelID,
		&cfg.ArchiveContainerID,
		&cfg.AutoCloseHours,
		&cfg.MaxOpenTickets,
		&cfg.WelcomeMessage,
		&cfg.PanelTitle,
		&cfg.PanelDescription,
		&cfg.PanelColor,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, mapNotFound(err)
	}
	return &cfg, nil
}

func (r *guildConfigRepository) Upsert(ctx context.Context, cfg *domain.GuildConfig) error {
	const query = `
        INSERT INTO guild_ticket_configs (guild_id, channel_container_id, support_role_id, transcript_channel_id,
            archive_container_id, auto_close_hours, max_open_tickets, welcome_message, panel_title, panel_description, panel_color)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (guild_id) DO UPDATE SET
            channel_container_id=EXCLUDED.channel_container_id,
            support_role_id=EXCLUDED.support_role_id,
            transcript_channel_id=EXCLUDED.transcript_channel_id,
            archive_container_id=EXCLUDED.archive_container_id,
            auto_close_hours=EXCLUDED.auto_close_hours,
            max_open_tickets=EXCLUDED.max_open_tickets,
            welcome_message=EXCLUDED.welcome_message,
            panel_title=EXCLUDED.panel_title,
            panel_description=EXCLUDED.panel_description,
            panel_color=EXCLUDED.panel_color,
            updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		cfg.GuildID,
		cfg.ChannelContainerID,
		cfg.SupportRoleID,
		cfg.TranscriptChannelID,
		cfg.ArchiveContainerID,
		cfg.AutoCloseHours,
		cfg.MaxOpenTickets,
		cfg.WelcomeMessage,
		cfg.PanelTitle,
		cfg.PanelDescription,
		cfg.PanelColor,
	).Scan(&cfg.UpdatedAt)
}
