package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
)

type categoryRepo struct{ s *Store }

func (r categoryRepo) Create(_ context.Context, category *domain.TicketCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.GuildID == category.GuildID && existing.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	category.ID = newID()
	category.CreatedAt = now
	category.UpdatedAt = now
	r.s.categories[category.ID] = cloneCategory(category)
	return nil
}

func (r categoryRepo) Update(_ context.Context, category *domain.TicketCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.categories[category.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.s.categories {
		if existing.ID != category.ID && existing.GuildID == stored.GuildID && existing.Name == category.Name {
			return repository.ErrDuplicate
		}
	}
	category.GuildID = stored.GuildID
	category.CreatedAt = stored.CreatedAt
	category.UpdatedAt = r.s.now()
	r.s.categories[category.ID] = cloneCategory(category)
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.categories, id)
	for _, tpl := range r.s.templates {
		if tpl.CategoryID != nil && *tpl.CategoryID == id {
			tpl.CategoryID = nil
		}
	}
	return nil
}

func (r categoryRepo) GetByID(_ context.Context, id string) (*domain.TicketCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCategory(category), nil
}

func (r categoryRepo) ListByGuild(_ context.Context, guildID string, activeOnly bool) ([]domain.TicketCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketCategory
	for _, category := range r.s.categories {
		if category.GuildID != guildID || (activeOnly && !category.IsActive) {
			continue
		}
		result = append(result, *cloneCategory(category))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func cloneCategory(category *domain.TicketCategory) *domain.TicketCategory {
	clone := *category
	clone.RequiredRoleIDs = append([]string(nil), category.RequiredRoleIDs...)
	return &clone
}

type templateRepo struct{ s *Store }

func (r templateRepo) Create(_ context.Context, tpl *domain.TicketTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	tpl.ID = newID()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	stored := *tpl
	r.s.templates[tpl.ID] = &stored
	return nil
}

func (r templateRepo) Update(_ context.Context, tpl *domain.TicketTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.templates[tpl.ID]
	if !ok {
		return repository.ErrNotFound
	}
	tpl.GuildID = stored.GuildID
	tpl.CreatedAt = stored.CreatedAt
	tpl.UpdatedAt = r.s.now()
	updated := *tpl
	r.s.templates[tpl.ID] = &updated
	return nil
}

func (r templateRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.templates, id)
	return nil
}

func (r templateRepo) GetByID(_ context.Context, id string) (*domain.TicketTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tpl, ok := r.s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *tpl
	return &clone, nil
}

func (r templateRepo) ListByGuild(_ context.Context, guildID string) ([]domain.TicketTemplate, error) {
	return r.list(func(tpl *domain.TicketTemplate) bool { return tpl.GuildID == guildID }), nil
}

func (r templateRepo) ListForCategory(_ context.Context, guildID string, categoryID *string) ([]domain.TicketTemplate, error) {
	return r.list(func(tpl *domain.TicketTemplate) bool {
		if tpl.GuildID != guildID || !tpl.IsActive {
			return false
		}
		if tpl.CategoryID == nil {
			return true
		}
		return categoryID != nil && *tpl.CategoryID == *categoryID
	}), nil
}

func (r templateRepo) list(keep func(*domain.TicketTemplate) bool) []domain.TicketTemplate {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TicketTemplate
	for _, tpl := range r.s.templates {
		if keep(tpl) {
			result = append(result, *tpl)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
