package service

import (
	"sync"
	"time"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
)

// CategoryCache keeps recently resolved categories for a fixed TTL. Expiry is
// measured on the injected clock. A zero TTL disables caching.
type CategoryCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]categoryEntry
}

type categoryEntry struct {
	category  domain.TicketCategory
	expiresAt time.Time
}

// NewCategoryCache builds an empty cache.
func NewCategoryCache(clk clock.Clock, ttl time.Duration) *CategoryCache {
	return &CategoryCache{clock: clk, ttl: ttl, entries: make(map[string]categoryEntry)}
}

// Get returns a copy of the cached category if it has not expired.
func (c *CategoryCache) Get(id string) (*domain.TicketCategory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, id)
		return nil, false
	}
	category := entry.category
	category.RequiredRoleIDs = append([]string(nil), entry.category.RequiredRoleIDs...)
	return &category, true
}

// Put stores category until now + TTL.
func (c *CategoryCache) Put(category *domain.TicketCategory) {
	if c.ttl <= 0 || category == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *category
	stored.RequiredRoleIDs = append([]string(nil), category.RequiredRoleIDs...)
	c.entries[category.ID] = categoryEntry{category: stored, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Invalidate drops one entry.
func (c *CategoryCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len reports the number of entries, expired or not.
func (c *CategoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
