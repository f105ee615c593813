package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// CategoryService manages ticket categories from the dashboard.
type CategoryService struct {
	repo     repository.CategoryRepository
	resolver *CategoryResolver
}

// CategoryInput carries editable category fields.
type CategoryInput struct {
	Name               string
	Emoji              string
	ChannelContainerID string
	SupportRoleID      string
	RequiredRoleIDs    []string
	AutoResponse       string
	IsActive           bool
}

// NewCategoryService constructs the service.
func NewCategoryService(repo repository.CategoryRepository, resolver *CategoryResolver) *CategoryService {
	return &CategoryService{repo: repo, resolver: resolver}
}

// List returns the guild's categories.
func (s *CategoryService) List(ctx context.Context, guildID string, activeOnly bool) ([]domain.TicketCategory, error) {
	categories, err := s.repo.ListByGuild(ctx, guildID, activeOnly)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("list categories", err)
	}
	return categories, nil
}

// Get returns one category of the guild.
func (s *CategoryService) Get(ctx context.Context, guildID, id string) (*domain.TicketCategory, error) {
	category, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && category.GuildID != guildID) {
		return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load category", err)
	}
	return category, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, guildID string, input CategoryInput) (*domain.TicketCategory, error) {
	category := &domain.TicketCategory{GuildID: guildID}
	applyCategoryInput(category, input)
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, mapCategoryWriteError(err, category.Name)
	}
	return category, nil
}

// Update replaces the editable fields of a category.
func (s *CategoryService) Update(ctx context.Context, guildID, id string, input CategoryInput) (*domain.TicketCategory, error) {
	category, err := s.Get(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	applyCategoryInput(category, input)
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, mapCategoryWriteError(err, category.Name)
	}
	s.resolver.Invalidate(id)
	return category, nil
}

// Delete removes a category. Tickets keep their reference for history.
func (s *CategoryService) Delete(ctx context.Context, guildID, id string) error {
	if _, err := s.Get(ctx, guildID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.NewPersistenceFailure("delete category", err)
	}
	s.resolver.Invalidate(id)
	return nil
}

func applyCategoryInput(category *domain.TicketCategory, input CategoryInput) {
	category.Name = strings.TrimSpace(input.Name)
	category.Emoji = strings.TrimSpace(input.Emoji)
	category.ChannelContainerID = strings.TrimSpace(input.ChannelContainerID)
	category.SupportRoleID = strings.TrimSpace(input.SupportRoleID)
	category.RequiredRoleIDs = compactIDs(input.RequiredRoleIDs)
	category.AutoResponse = strings.TrimSpace(input.AutoResponse)
	category.IsActive = input.IsActive
}

func mapCategoryWriteError(err error, name string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewValidationError("a category with this name already exists", map[string]any{"name": name})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("category", nil)
	}
	return apperrors.NewPersistenceFailure("save category", err)
}

func compactIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
