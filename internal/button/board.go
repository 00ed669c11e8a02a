package button

import (
	"fmt"
	"image"
	"sort"

	"github.com/jwulff/deckhand/internal/entity"
)

// Board is the fixed set of buttons on one deck, indexed by key.
type Board struct {
	buttons map[int]*Button
}

// NewBoard indexes buttons by key. Keys must be unique.
func NewBoard(buttons ...*Button) (*Board, error) {
	b := &Board{buttons: make(map[int]*Button, len(buttons))}
	for _, btn := range buttons {
		if _, dup := b.buttons[btn.Key()]; dup {
			return nil, fmt.Errorf("duplicate button for key %d", btn.Key())
		}
		b.buttons[btn.Key()] = btn
	}
	return b, nil
}

// Get returns the button on key.
func (b *Board) Get(key int) (*Button, bool) {
	btn, ok := b.buttons[key]
	return btn, ok
}

// Buttons returns every button ordered by key.
func (b *Board) Buttons() []*Button {
	out := make([]*Button, 0, len(b.buttons))
	for _, btn := range b.buttons {
		out = append(out, btn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Subscribers returns the buttons as registry subscribers.
func (b *Board) Subscribers() []entity.Subscriber {
	var subs []entity.Subscriber
	for _, btn := range b.Buttons() {
		if len(btn.WatchedEntities()) > 0 {
			subs = append(subs, btn)
		}
	}
	return subs
}

// Frames renders the current face of every button.
func (b *Board) Frames() map[int]image.Image {
	frames := make(map[int]image.Image, len(b.buttons))
	for key, btn := range b.buttons {
		frames[key] = btn.Frame()
	}
	return frames
}

// DrawAll draws every button through its display.
func (b *Board) DrawAll() {
	for _, btn := range b.Buttons() {
		btn.draw()
	}
}
