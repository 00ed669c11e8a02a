package entity

import (
	"context"
	"time"

	"github.com/jwulff/deckhand/internal/domain"
	"github.com/rs/zerolog"
)

// Observer receives state notifications for the entities it watches.
type Observer interface {
	Update(state domain.EntityState)
}

// Subscriber is an Observer that declares which entity ids it watches.
type Subscriber interface {
	Observer
	WatchedEntities() []string
}

// Journal persists watched entity states. Failures never block delivery.
type Journal interface {
	SaveEntityState(ctx context.Context, state domain.EntityState) error
}

// JournalTimeout bounds one journal write on the receive path.
const JournalTimeout = 2 * time.Second

// Registry maps entity ids to observers. It is built once and never
// modified afterwards, so lookups need no lock.
type Registry struct {
	cache     *Cache
	observers map[string][]Observer
	journal   Journal
	log       zerolog.Logger

	journalTimeout time.Duration
}

// NewRegistry registers every subscriber under each entity id it watches.
// A subscriber listing the same id twice is registered once for it.
func NewRegistry(cache *Cache, subscribers []Subscriber, journal Journal, log zerolog.Logger) *Registry {
	r := &Registry{
		cache:     cache,
		observers: make(map[string][]Observer),
		journal:   journal,
		log:       log.With().Str("component", "registry").Logger(),

		journalTimeout: JournalTimeout,
	}
	for _, sub := range subscribers {
		seen := make(map[string]bool)
		for _, id := range sub.WatchedEntities() {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			r.observers[id] = append(r.observers[id], sub)
		}
	}
	return r
}

// Watches reports whether any observer is registered for id.
func (r *Registry) Watches(id string) bool {
	return len(r.observers[id]) > 0
}

// Entities returns every watched entity id.
func (r *Registry) Entities() []string {
	ids := make([]string, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	return ids
}

// Cache returns the backing state cache.
func (r *Registry) Cache() *Cache {
	return r.cache
}

// Notify records state in the cache and delivers it to every observer of
// its entity id. Unwatched ids are a no-op.
func (r *Registry) Notify(state domain.EntityState) {
	observers := r.observers[state.EntityID]
	if len(observers) == 0 {
		return
	}

	r.cache.Set(state)
	r.persist(state)

	for _, obs := range observers {
		obs.Update(state)
	}
}

func (r *Registry) persist(state domain.EntityState) {
	if r.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.journalTimeout)
	defer cancel()
	if err := r.journal.SaveEntityState(ctx, state); err != nil {
		r.log.Warn().Err(err).Str("entity", state.EntityID).Msg("failed to persist entity state")
	}
}

// Restore seeds the cache and observers from previously persisted states
// without writing them back to the journal.
func (r *Registry) Restore(states []domain.EntityState) int {
	restored := 0
	for _, state := range states {
		observers := r.observers[state.EntityID]
		if len(observers) == 0 {
			continue
		}
		r.cache.Set(state)
		for _, obs := range observers {
			obs.Update(state)
		}
		restored++
	}
	return restored
}
