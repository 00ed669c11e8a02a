package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jwulff/deckhand/internal/command"
	"github.com/jwulff/deckhand/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Protocol errors. Both end the session; the supervisor reconnects.
var (
	ErrAuthRejected      = errors.New("authentication rejected")
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// Default timings.
const (
	DefaultAuthTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultReconnectDelay = 5 * time.Second
)

// Config configures the connection to the server.
type Config struct {
	URL            string
	Token          string
	AuthTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration // zero disables keepalive pings
	ReconnectDelay time.Duration
}

// DefaultConfig returns a config with default timings.
func DefaultConfig(url, token string) Config {
	return Config{
		URL:            url,
		Token:          token,
		AuthTimeout:    DefaultAuthTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		PingInterval:   DefaultPingInterval,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Notifier receives inbound entity states in the order they arrive.
type Notifier interface {
	Notify(state domain.EntityState)
}

// Session is one connection attempt: handshake, subscription, then a
// sender and a receiver running until either ends.
type Session struct {
	cfg        Config
	generation uint64
	nextID     int
	dialer     *websocket.Dialer
	queue      *command.Queue
	notifier   Notifier
	log        zerolog.Logger

	// OnAuthenticated, if set, is called once the handshake succeeds.
	OnAuthenticated func()
}

// NewSession creates a session for one generation. Request ids start at 1.
func NewSession(cfg Config, generation uint64, queue *command.Queue, notifier Notifier, log zerolog.Logger) *Session {
	return &Session{
		cfg:        cfg,
		generation: generation,
		nextID:     1,
		dialer:     websocket.DefaultDialer,
		queue:      queue,
		notifier:   notifier,
		log:        log.With().Uint64("generation", generation).Logger(),
	}
}

// Generation returns the session's generation number.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Run connects and runs the session until the connection fails, the server
// closes it, or ctx is cancelled. It always returns a non-nil error.
func (s *Session) Run(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Closing the connection unblocks a pending read or write.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.log.Info().Str("url", s.cfg.URL).Msg("connected")

	if err := s.authenticate(conn); err != nil {
		return err
	}
	s.log.Info().Msg("authenticated")
	if s.OnAuthenticated != nil {
		s.OnAuthenticated()
	}

	if err := s.subscribe(conn); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.receive(conn)
	})
	g.Go(func() error {
		defer cancel()
		return s.send(gctx, conn)
	})
	if s.cfg.PingInterval > 0 {
		g.Go(func() error {
			defer cancel()
			return s.keepalive(gctx, conn)
		})
	}
	return g.Wait()
}

func (s *Session) authenticate(conn *websocket.Conn) error {
	if s.cfg.AuthTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout))
	}

	msg, err := s.readMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to read auth challenge: %w", err)
	}
	if msg.Type != TypeAuthRequired {
		return fmt.Errorf("%w: expected %s, got %q", ErrUnexpectedMessage, TypeAuthRequired, msg.Type)
	}

	if err := s.write(conn, CreateAuthMessage(s.cfg.Token)); err != nil {
		return fmt.Errorf("failed to send auth: %w", err)
	}

	msg, err = s.readMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to read auth reply: %w", err)
	}
	switch msg.Type {
	case TypeAuthOK:
	case TypeAuthInvalid:
		return fmt.Errorf("%w: %s", ErrAuthRejected, msg.Message)
	default:
		return fmt.Errorf("%w: expected %s, got %q", ErrUnexpectedMessage, TypeAuthOK, msg.Type)
	}

	s.extendReadDeadline(conn)
	if s.cfg.PingInterval > 0 {
		conn.SetPongHandler(func(string) error {
			s.extendReadDeadline(conn)
			return nil
		})
	}
	return nil
}

func (s *Session) subscribe(conn *websocket.Conn) error {
	if err := s.write(conn, CreateGetStatesMessage(s.takeID())); err != nil {
		return fmt.Errorf("failed to request states: %w", err)
	}
	if err := s.write(conn, CreateSubscribeMessage(s.takeID())); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// send drains the command queue. A command taken from the queue but not
// fully written when the connection drops is lost.
func (s *Session) send(ctx context.Context, conn *websocket.Conn) error {
	for {
		cmd, err := s.queue.Next(ctx)
		if err != nil {
			return err
		}
		id := s.takeID()
		if err := s.write(conn, CreateCallServiceMessage(id, cmd)); err != nil {
			s.log.Warn().Err(err).Str("command", cmd.String()).Msg("command possibly undelivered")
			return fmt.Errorf("failed to send %s: %w", cmd, err)
		}
		s.log.Debug().Int("id", id).Str("command", cmd.String()).Msg("command sent")
	}
}

func (s *Session) receive(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		s.extendReadDeadline(conn)
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn().Err(err).Msg("skipping malformed frame")
		return
	}

	if entries, ok := msg.StateEntries(); ok {
		for i, raw := range entries {
			state, err := DecodeEntityState(raw)
			if err != nil {
				s.log.Warn().Err(err).Int("index", i).Msg("skipping entity state")
				continue
			}
			s.notifier.Notify(state)
		}
		return
	}
	if state, ok := msg.StateChange(); ok {
		s.notifier.Notify(state)
		return
	}
	if msg.Failed() {
		event := s.log.Warn().Int("id", msg.ID)
		if msg.Error != nil {
			event = event.Str("code", msg.Error.Code).Str("error", msg.Error.Message)
		}
		event.Msg("request failed")
		return
	}
	if msg.Type == TypeResult {
		s.log.Debug().Int("id", msg.ID).Int("bytes", len(msg.Result)).Msg("ignoring result")
	}
}

func (s *Session) keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deadline := time.Now().Add(s.writeTimeout())
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("failed to ping: %w", err)
			}
		}
	}
}

func (s *Session) readMessage(conn *websocket.Conn) (*Message, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedMessage, err)
	}
	return &msg, nil
}

func (s *Session) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
	return conn.WriteJSON(v)
}

// extendReadDeadline allows two missed pings before the read times out.
func (s *Session) extendReadDeadline(conn *websocket.Conn) {
	if s.cfg.PingInterval <= 0 {
		_ = conn.SetReadDeadline(time.Time{})
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
}

func (s *Session) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout <= 0 {
		return DefaultWriteTimeout
	}
	return s.cfg.WriteTimeout
}

func (s *Session) takeID() int {
	id := s.nextID
	s.nextID++
	return id
}
