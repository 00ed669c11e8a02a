package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jwulff/deckhand/internal/domain"
	"github.com/jwulff/deckhand/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewMemoryStore(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store)
}

func TestNewFileStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir + "/test.db")
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store)
}

// Entity state tests

func TestSaveAndGetEntityState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := domain.EntityState{
		EntityID: "climate.office",
		State:    "heat",
		Attributes: map[string]any{
			"current_temperature": 21.46,
			"friendly_name":       "Office",
		},
	}
	require.NoError(t, store.SaveEntityState(ctx, state))

	retrieved, err := store.GetEntityState(ctx, "climate.office")
	require.NoError(t, err)

	assert.Equal(t, "heat", retrieved.State)
	temp, ok := retrieved.Float("current_temperature")
	assert.True(t, ok)
	assert.Equal(t, 21.46, temp)
	assert.Equal(t, "Office", retrieved.Attributes["friendly_name"])
}

func TestSaveEntityStateReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.SaveEntityState(ctx, domain.EntityState{EntityID: "light.office", State: "on",
		Attributes: map[string]any{"brightness": 255.0}})
	_ = store.SaveEntityState(ctx, domain.EntityState{EntityID: "light.office", State: "off"})

	retrieved, err := store.GetEntityState(ctx, "light.office")
	require.NoError(t, err)
	assert.Equal(t, "off", retrieved.State)
	assert.Empty(t, retrieved.Attributes)
}

func TestGetEntityStateNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEntityState(context.Background(), "sensor.nonexistent")
	assert.True(t, storage.IsNotFound(err))
}

func TestGetEntityStates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.SaveEntityState(ctx, domain.EntityState{EntityID: "sensor.b", State: "2"})
	_ = store.SaveEntityState(ctx, domain.EntityState{EntityID: "sensor.a", State: "1"})

	states, err := store.GetEntityStates(ctx)
	require.NoError(t, err)

	require.Len(t, states, 2)
	assert.Equal(t, "sensor.a", states[0].EntityID)
	assert.Equal(t, "sensor.b", states[1].EntityID)
}

func TestDeleteEntityState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.SaveEntityState(ctx, domain.EntityState{EntityID: "sensor.a", State: "1"})
	require.NoError(t, store.DeleteEntityState(ctx, "sensor.a"))

	_, err := store.GetEntityState(ctx, "sensor.a")
	assert.True(t, storage.IsNotFound(err))
}

// Session tests

func TestSaveAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := storage.NewSession(1)
	require.NoError(t, store.SaveSession(ctx, session))

	retrieved, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), retrieved.Generation)
	assert.WithinDuration(t, session.StartedAt, retrieved.StartedAt, time.Second)
	assert.False(t, retrieved.Authenticated())
	assert.True(t, retrieved.EndedAt.IsZero())
}

func TestSaveSessionUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := storage.NewSession(2)
	_ = store.SaveSession(ctx, session)

	session.AuthenticatedAt = session.StartedAt.Add(100 * time.Millisecond)
	session.EndedAt = session.StartedAt.Add(time.Minute)
	session.Error = "connection reset by peer"
	require.NoError(t, store.SaveSession(ctx, session))

	retrieved, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.Authenticated())
	assert.WithinDuration(t, session.EndedAt, retrieved.EndedAt, time.Second)
	assert.Equal(t, "connection reset by peer", retrieved.Error)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	var notFound storage.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, "session", notFound.Resource)
}

func TestGetRecentSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for gen := uint64(1); gen <= 5; gen++ {
		session := storage.NewSession(gen)
		session.StartedAt = base.Add(time.Duration(gen) * time.Minute)
		require.NoError(t, store.SaveSession(ctx, session))
	}

	sessions, err := store.GetRecentSessions(ctx, 3)
	require.NoError(t, err)

	require.Len(t, sessions, 3)
	assert.Equal(t, uint64(5), sessions[0].Generation)
	assert.Equal(t, uint64(3), sessions[2].Generation)
}
