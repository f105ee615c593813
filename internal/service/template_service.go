package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// TemplateService manages templates and renders them for new tickets.
type TemplateService struct {
	repo       repository.TemplateRepository
	categories repository.CategoryRepository
	clock      clock.Clock
}

// TemplateInput carries editable template fields.
type TemplateInput struct {
	CategoryID      *string
	Name            string
	Subject         string
	DescriptionText string
	IsActive        bool
}

// NewTemplateService constructs the service.
func NewTemplateService(repo repository.TemplateRepository, categories repository.CategoryRepository, clk clock.Clock) *TemplateService {
	return &TemplateService{repo: repo, categories: categories, clock: clk}
}

// List returns every template of the guild.
func (s *TemplateService) List(ctx context.Context, guildID string) ([]domain.TicketTemplate, error) {
	templates, err := s.repo.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("list templates", err)
	}
	return templates, nil
}

// ListForCategory returns active templates usable for categoryID: the ones
// scoped to it plus the category-agnostic ones.
func (s *TemplateService) ListForCategory(ctx context.Context, guildID string, categoryID *string) ([]domain.TicketTemplate, error) {
	templates, err := s.repo.ListForCategory(ctx, guildID, categoryID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("list templates", err)
	}
	return templates, nil
}

// Get returns one template of the guild.
func (s *TemplateService) Get(ctx context.Context, guildID, id string) (*domain.TicketTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && tpl.GuildID != guildID) {
		return nil, apperrors.NewNotFound("template", map[string]any{"template_id": id})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load template", err)
	}
	return tpl, nil
}

// Create adds a template.
func (s *TemplateService) Create(ctx context.Context, guildID string, input TemplateInput) (*domain.TicketTemplate, error) {
	if err := s.checkCategory(ctx, guildID, input.CategoryID); err != nil {
		return nil, err
	}
	tpl := &domain.TicketTemplate{GuildID: guildID}
	applyTemplateInput(tpl, input)
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, apperrors.NewPersistenceFailure("save template", err)
	}
	return tpl, nil
}

// Update replaces the editable fields of a template.
func (s *TemplateService) Update(ctx context.Context, guildID, id string, input TemplateInput) (*domain.TicketTemplate, error) {
	tpl, err := s.Get(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, guildID, input.CategoryID); err != nil {
		return nil, err
	}
	applyTemplateInput(tpl, input)
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, apperrors.NewPersistenceFailure("save template", err)
	}
	return tpl, nil
}

// Delete removes a template.
func (s *TemplateService) Delete(ctx context.Context, guildID, id string) error {
	if _, err := s.Get(ctx, guildID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.NewPersistenceFailure("delete template", err)
	}
	return nil
}

// Render loads a template and substitutes vars for requesterName.
func (s *TemplateService) Render(ctx context.Context, guildID, id string, vars map[string]string, requesterName string) (RenderedTemplate, error) {
	tpl, err := s.Get(ctx, guildID, id)
	if err != nil {
		return RenderedTemplate{}, err
	}
	return RenderTemplate(tpl, vars, requesterName, s.clock.Now()), nil
}

func (s *TemplateService) checkCategory(ctx context.Context, guildID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categories.GetByID(ctx, *categoryID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && category.GuildID != guildID) {
		return apperrors.NewNotFound("category", map[string]any{"category_id": *categoryID})
	}
	if err != nil {
		return apperrors.NewPersistenceFailure("load category", err)
	}
	return nil
}

func applyTemplateInput(tpl *domain.TicketTemplate, input TemplateInput) {
	tpl.CategoryID = input.CategoryID
	tpl.Name = strings.TrimSpace(input.Name)
	tpl.Subject = input.Subject
	tpl.DescriptionText = input.DescriptionText
	tpl.IsActive = input.IsActive
}
