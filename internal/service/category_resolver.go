package service

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// Resolution is the routing outcome for a new ticket.
type Resolution struct {
	Category      *domain.TicketCategory
	Config        *domain.GuildConfig
	ContainerID   string
	SupportRoleID string
	AutoResponse  string
}

// CategoryResolver resolves the effective category and checks eligibility.
type CategoryResolver struct {
	categories repository.CategoryRepository
	configs    *GuildConfigService
	cache      *CategoryCache
}

// NewCategoryResolver constructs the resolver.
func NewCategoryResolver(categories repository.CategoryRepository, configs *GuildConfigService, cache *CategoryCache) *CategoryResolver {
	return &CategoryResolver{categories: categories, configs: configs, cache: cache}
}

// Resolve looks up categoryID (nil means general) for a requester holding
// roles. Eligibility is checked before anything else happens.
func (r *CategoryResolver) Resolve(ctx context.Context, guildID string, categoryID *string, roles []string) (*Resolution, error) {
	cfg, err := r.configs.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	res := &Resolution{
		Config:        cfg,
		ContainerID:   cfg.ChannelContainerID,
		SupportRoleID: cfg.SupportRoleID,
	}
	if categoryID == nil {
		return res, nil
	}

	category, err := r.lookup(ctx, *categoryID)
	if err != nil {
		return nil, err
	}
	if category.GuildID != guildID || !category.IsActive {
		return nil, apperrors.NewNotFound("category", map[string]any{"category_id": *categoryID})
	}
	if !category.AllowsRoles(roles) {
		return nil, apperrors.NewIneligible(category.Name)
	}

	res.Category = category
	res.AutoResponse = category.AutoResponse
	if category.ChannelContainerID != "" {
		res.ContainerID = category.ChannelContainerID
	}
	if category.SupportRoleID != "" {
		res.SupportRoleID = category.SupportRoleID
	}
	return res, nil
}

// SupportRoleID returns the role that staffs tickets of categoryID, falling
// back to the guild's support role. A category that no longer exists or was
// deactivated still counts for tickets opened under it.
func (r *CategoryResolver) SupportRoleID(ctx context.Context, guildID string, categoryID *string) (string, error) {
	if categoryID != nil {
		category, err := r.lookup(ctx, *categoryID)
		switch {
		case err == nil && category.GuildID == guildID && category.SupportRoleID != "":
			return category.SupportRoleID, nil
		case err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound):
			return "", err
		}
	}
	cfg, err := r.configs.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	return cfg.SupportRoleID, nil
}

// Invalidate forgets a cached category after it was edited.
func (r *CategoryResolver) Invalidate(categoryID string) {
	r.cache.Invalidate(categoryID)
}

func (r *CategoryResolver) lookup(ctx context.Context, id string) (*domain.TicketCategory, error) {
	if category, ok := r.cache.Get(id); ok {
		return category, nil
	}
	category, err := r.categories.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load category", err)
	}
	r.cache.Put(category)
	return category, nil
}
