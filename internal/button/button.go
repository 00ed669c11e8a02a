// Package button implements deck keys: their face, their press and
// release behavior, and how watched entities redraw them.
package button

import (
	"image"
	"sync"

	"github.com/jwulff/deckhand/internal/domain"
	"github.com/jwulff/deckhand/internal/render"
	"github.com/rs/zerolog"
)

// PressBrighten is how far the background blends toward white while pressed.
const PressBrighten = 0.6

// unavailableDim darkens a watched button whose entity is unavailable.
const unavailableDim = 0.5

// Enqueuer accepts commands for delivery to the server.
type Enqueuer interface {
	Push(cmd domain.Command)
}

// Runner starts a local shell command without waiting for it.
type Runner interface {
	Run(command string)
}

// StateReader looks up last known entity states.
type StateReader interface {
	Lookup(id string) (domain.EntityState, bool)
}

// Display writes key images unless the display is suspended.
type Display interface {
	Refresh(key int, img image.Image) (bool, error)
}

// Renderer draws a face.
type Renderer interface {
	Render(face domain.Face) *domain.Frame
}

// Env holds the collaborators shared by every button.
type Env struct {
	Queue    Enqueuer
	Runner   Runner
	States   StateReader
	Display  Display
	Renderer Renderer
	Log      zerolog.Logger
}

// Button is one deck key.
type Button struct {
	key    int
	action Action
	base   domain.Face
	env    *Env
	log    zerolog.Logger

	// drawMu orders draws of this key so the last one shows the latest
	// face. It is taken before the display lock; mu is taken after it.
	drawMu sync.Mutex
	mu     sync.Mutex
	face   domain.Face
}

// New creates a button showing base until something changes it.
func New(key int, base domain.Face, action Action, env *Env) *Button {
	b := &Button{
		key:    key,
		action: action,
		base:   base,
		env:    env,
		log:    env.Log.With().Int("key", key).Str("action", action.Kind.String()).Logger(),
		face:   base,
	}
	if action.Kind == Watch {
		b.face = b.watchFace()
	}
	return b
}

// Key returns the key index.
func (b *Button) Key() int {
	return b.key
}

// Action returns the button's action.
func (b *Button) Action() Action {
	return b.action
}

// Face returns the current face.
func (b *Button) Face() domain.Face {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.face
}

// Frame renders the current face.
func (b *Button) Frame() *domain.Frame {
	return b.env.Renderer.Render(b.Face())
}

// WatchedEntities lists the entity ids whose updates reach this button.
func (b *Button) WatchedEntities() []string {
	switch b.action.Kind {
	case Watch:
		return b.action.Watch.Entities()
	case Adjust:
		return []string{b.action.Adjust.EntityID}
	default:
		return nil
	}
}

// Update recomputes a watched button from the cache and redraws it.
func (b *Button) Update(state domain.EntityState) {
	if b.action.Kind != Watch {
		return
	}
	b.setFace(b.watchFace())
}

// Press gives visual feedback and performs the action.
func (b *Button) Press() {
	b.mu.Lock()
	b.face.Background = b.face.Background.Brighten(PressBrighten)
	b.mu.Unlock()
	b.draw()

	switch b.action.Kind {
	case Shell:
		b.log.Debug().Str("command", b.action.Command).Msg("running")
		b.env.Runner.Run(b.action.Command)
	case Service:
		b.enqueue(b.action.Call.Command())
	case Watch:
		state, known := b.env.States.Lookup(b.action.Watch.EntityID)
		b.enqueue(b.action.Watch.ToggleCommand(state, known))
	case Adjust:
		a := b.action.Adjust
		state, known := b.env.States.Lookup(a.EntityID)
		b.enqueue(a.Command(a.Next(state, known)))
	}
}

// Release restores the face. Watched buttons re-render from the latest
// state instead, which may already reflect the toggle.
func (b *Button) Release() {
	if b.action.Kind == Watch {
		b.setFace(b.watchFace())
		return
	}
	b.setFace(b.base)
}

func (b *Button) enqueue(cmd domain.Command) {
	b.log.Debug().Str("command", cmd.String()).Msg("queued")
	b.env.Queue.Push(cmd)
}

func (b *Button) setFace(face domain.Face) {
	b.mu.Lock()
	b.face = face
	b.mu.Unlock()
	b.draw()
}

// draw writes the current face through the display, which drops the
// write while the screen is off.
func (b *Button) draw() {
	b.drawMu.Lock()
	defer b.drawMu.Unlock()
	if _, err := b.env.Display.Refresh(b.key, b.Frame()); err != nil {
		b.log.Warn().Err(err).Msg("failed to draw")
	}
}

func (b *Button) watchFace() domain.Face {
	w := b.action.Watch
	face := b.base

	state, known := b.env.States.Lookup(w.EntityID)
	switch {
	case known && w.IsOn(state):
		face.Background = w.OnColor
	case known && state.State == "unavailable":
		face.Background = render.DimColor(w.OffColor, unavailableDim)
	default:
		face.Background = w.OffColor
	}

	if w.HasReading() {
		reading, ok := b.env.States.Lookup(w.readingEntity())
		line := w.FormatReading(reading, ok)
		if face.Text == "" {
			face.Text = line
		} else {
			face.Text = face.Text + "\n" + line
		}
	}
	return face
}
