// Package dispatch routes physical key events to buttons.
package dispatch

import (
	"github.com/jwulff/deckhand/internal/button"
	"github.com/rs/zerolog"
)

// Power is the part of the screensaver the dispatcher needs.
type Power interface {
	Activity(pressed bool) (bool, error)
}

// Dispatcher handles key transitions from the device.
type Dispatcher struct {
	power Power
	board *button.Board
	log   zerolog.Logger
}

// New creates a dispatcher.
func New(power Power, board *button.Board, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		power: power,
		board: board,
		log:   log.With().Str("component", "dispatch").Logger(),
	}
}

// HandleKey is the device key callback. While the display is not fully
// awake a press only wakes it, and releases are dropped.
func (d *Dispatcher) HandleKey(key int, pressed bool) {
	deliver, err := d.power.Activity(pressed)
	if err != nil {
		d.log.Error().Err(err).Msg("wake failed")
	}
	if !deliver {
		return
	}

	btn, ok := d.board.Get(key)
	if !ok {
		d.log.Debug().Int("key", key).Msg("no button on key")
		return
	}
	if pressed {
		btn.Press()
	} else {
		btn.Release()
	}
}
