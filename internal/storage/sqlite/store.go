// Package sqlite provides a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwulff/deckhand/internal/domain"
	"github.com/jwulff/deckhand/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writers are serialized and :memory: stays a single database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entity state methods

func (s *Store) SaveEntityState(ctx context.Context, state domain.EntityState) error {
	attrs := state.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO entity_states (entity_id, state, attributes, updated_at)
		VALUES (?, ?, ?, ?)
	`, state.EntityID, state.State, string(attrsJSON), time.Now())
	return err
}

func (s *Store) GetEntityState(ctx context.Context, entityID string) (*domain.EntityState, error) {
	var state domain.EntityState
	var attrsJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id, state, attributes FROM entity_states WHERE entity_id = ?
	`, entityID).Scan(&state.EntityID, &state.State, &attrsJSON)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "entity_state", ID: entityID}
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(attrsJSON), &state.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	return &state, nil
}

func (s *Store) GetEntityStates(ctx context.Context) ([]domain.EntityState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, state, attributes FROM entity_states ORDER BY entity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.EntityState
	for rows.Next() {
		var state domain.EntityState
		var attrsJSON string
		if err := rows.Scan(&state.EntityID, &state.State, &attrsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrsJSON), &state.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes for %s: %w", state.EntityID, err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func (s *Store) DeleteEntityState(ctx context.Context, entityID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entity_states WHERE entity_id = ?", entityID)
	return err
}

// Session methods

func (s *Store) SaveSession(ctx context.Context, session *storage.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, generation, started_at, authenticated_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, int64(session.Generation), session.StartedAt,
		nullTime(session.AuthenticatedAt), nullTime(session.EndedAt), session.Error)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, generation, started_at, authenticated_at, ended_at, error
		FROM sessions WHERE id = ?
	`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "session", ID: id}
	}
	return session, err
}

func (s *Store) GetRecentSessions(ctx context.Context, limit int) ([]*storage.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generation, started_at, authenticated_at, ended_at, error
		FROM sessions ORDER BY started_at DESC, generation DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*storage.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*storage.Session, error) {
	var session storage.Session
	var generation int64
	var authenticatedAt, endedAt sql.NullTime
	err := row.Scan(&session.ID, &generation, &session.StartedAt, &authenticatedAt, &endedAt, &session.Error)
	if err != nil {
		return nil, err
	}
	session.Generation = uint64(generation)
	if authenticatedAt.Valid {
		session.AuthenticatedAt = authenticatedAt.Time
	}
	if endedAt.Valid {
		session.EndedAt = endedAt.Time
	}
	return &session, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
