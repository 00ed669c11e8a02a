package hass

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jwulff/deckhand/internal/command"
	"github.com/jwulff/deckhand/internal/storage"
	"github.com/rs/zerolog"
)

// SessionStore records session history.
type SessionStore interface {
	SaveSession(ctx context.Context, session *storage.Session) error
}

// Supervisor keeps exactly one session alive, reconnecting after a fixed
// delay whenever a session ends. It never gives up.
type Supervisor struct {
	cfg      Config
	queue    *command.Queue
	notifier Notifier
	store    SessionStore
	log      zerolog.Logger

	generation    atomic.Uint64
	authenticated atomic.Bool
}

// NewSupervisor creates a supervisor. store may be nil.
func NewSupervisor(cfg Config, queue *command.Queue, notifier Notifier, store SessionStore, log zerolog.Logger) *Supervisor {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Supervisor{
		cfg:      cfg,
		queue:    queue,
		notifier: notifier,
		store:    store,
		log:      log.With().Str("component", "supervisor").Logger(),
	}
}

// Generation returns the generation of the current or last session.
func (s *Supervisor) Generation() uint64 {
	return s.generation.Load()
}

// Connected reports whether the current session has authenticated.
func (s *Supervisor) Connected() bool {
	return s.authenticated.Load()
}

// Run runs sessions one after another until ctx is cancelled. The previous
// session is fully torn down before the next one starts.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		generation := s.generation.Add(1)
		err := s.runSession(ctx, generation)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).
			Uint64("generation", generation).
			Int("queued", s.queue.Len()).
			Dur("delay", s.cfg.ReconnectDelay).
			Msg("session ended, reconnecting")

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Supervisor) runSession(ctx context.Context, generation uint64) error {
	record := storage.NewSession(generation)
	s.save(record)

	session := NewSession(s.cfg, generation, s.queue, s.notifier,
		s.log.With().Str("session", record.ID).Logger())
	session.OnAuthenticated = func() {
		s.authenticated.Store(true)
		record.AuthenticatedAt = time.Now()
		s.save(record)
		if n := s.queue.Len(); n > 0 {
			s.log.Info().Int("queued", n).Msg("flushing queued commands")
		}
	}

	err := session.Run(ctx)
	s.authenticated.Store(false)

	record.EndedAt = time.Now()
	if err != nil && ctx.Err() == nil {
		record.Error = err.Error()
	}
	s.save(record)
	return err
}

func (s *Supervisor) save(record *storage.Session) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveSession(ctx, record); err != nil {
		s.log.Warn().Err(err).Msg("failed to record session")
	}
}
