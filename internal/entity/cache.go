// Package entity fans remote entity notifications out to the buttons that
// watch them, keeping the last known state of each entity.
package entity

import (
	"sync"

	"github.com/jwulff/deckhand/internal/domain"
)

// Cache holds the last known state per entity id.
//
// Writes come only from the connection's receiver loop; reads also come
// from button handlers running on the device callback, hence the lock.
type Cache struct {
	mu     sync.RWMutex
	states map[string]domain.EntityState
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{states: make(map[string]domain.EntityState)}
}

// Set replaces the state for its entity id.
func (c *Cache) Set(state domain.EntityState) {
	c.mu.Lock()
	c.states[state.EntityID] = state
	c.mu.Unlock()
}

// Lookup returns the last known state for id.
func (c *Cache) Lookup(id string) (domain.EntityState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[id]
	return state, ok
}

// Len returns the number of cached entities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}
