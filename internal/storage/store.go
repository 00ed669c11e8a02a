// Package storage provides storage abstractions for the deckhand bridge.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwulff/deckhand/internal/domain"
)

// Store is the interface for persistent storage.
type Store interface {
	// Last known entity states
	SaveEntityState(ctx context.Context, state domain.EntityState) error
	GetEntityState(ctx context.Context, entityID string) (*domain.EntityState, error)
	GetEntityStates(ctx context.Context) ([]domain.EntityState, error)
	DeleteEntityState(ctx context.Context, entityID string) error

	// Connection session history
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetRecentSessions(ctx context.Context, limit int) ([]*Session, error)

	// Lifecycle
	Close() error
}

// Session records one connection attempt (one generation).
type Session struct {
	ID              string
	Generation      uint64
	StartedAt       time.Time
	AuthenticatedAt time.Time // zero if authentication never completed
	EndedAt         time.Time // zero while running
	Error           string
}

// NewSession creates a new session record starting now.
func NewSession(generation uint64) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Generation: generation,
		StartedAt:  time.Now(),
	}
}

// Authenticated reports whether the session completed the handshake.
func (s *Session) Authenticated() bool {
	return !s.AuthenticatedAt.IsZero()
}

// Duration returns how long the session lasted, or has lasted so far.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
