// Package screensaver dims and then blanks the deck after inactivity.
//
// The Controller owns the display lock. Phase changes and every physical
// write to the deck happen under it, including per-key refreshes from
// buttons, so a redraw can never land on a blanked panel.
package screensaver

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/jwulff/deckhand/internal/deck"
	"github.com/jwulff/deckhand/internal/render"
	"github.com/rs/zerolog"
)

// Phase is the current power step of the display.
type Phase int

const (
	Awake Phase = iota
	Dimmed
	Off
)

func (p Phase) String() string {
	switch p {
	case Awake:
		return "awake"
	case Dimmed:
		return "dimmed"
	case Off:
		return "off"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Default settings.
const (
	DefaultCheckInterval = 10 * time.Second
	DefaultDimAfter      = 150 * time.Second
	DefaultOffAfter      = 300 * time.Second
	DefaultDimBrightness = 30
	DefaultBrightness    = 100
)

// Config holds idle thresholds and brightness levels.
type Config struct {
	CheckInterval time.Duration
	DimAfter      time.Duration
	OffAfter      time.Duration
	DimBrightness int
	Brightness    int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		CheckInterval: DefaultCheckInterval,
		DimAfter:      DefaultDimAfter,
		OffAfter:      DefaultOffAfter,
		DimBrightness: DefaultDimBrightness,
		Brightness:    DefaultBrightness,
	}
}

// Painter renders the current image of every key that has one.
type Painter interface {
	Frames() map[int]image.Image
}

// Controller is the idle/power state machine for one deck.
type Controller struct {
	cfg    Config
	device deck.Device
	blank  image.Image
	now    func() time.Time
	log    zerolog.Logger

	mu           sync.Mutex
	phase        Phase
	lastActivity time.Time
	suspended    bool
	painter      Painter
}

// New creates a controller in the awake phase with activity recorded now.
func New(cfg Config, device deck.Device, log zerolog.Logger) *Controller {
	return newController(cfg, device, log, time.Now)
}

func newController(cfg Config, device deck.Device, log zerolog.Logger, now func() time.Time) *Controller {
	return &Controller{
		cfg:          cfg,
		device:       device,
		blank:        render.Blank(device.KeySize()),
		now:          now,
		log:          log.With().Str("component", "screensaver").Logger(),
		phase:        Awake,
		lastActivity: now(),
	}
}

// SetPainter sets the source of key images used when waking.
func (c *Controller) SetPainter(p Painter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.painter = p
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Suspended reports whether display writes are currently blocked.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Idle returns the time since the last recorded activity.
func (c *Controller) Idle() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.lastActivity)
}

// Touch records activity.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = c.now()
}

// Check applies at most one idle transition.
func (c *Controller) Check() {
	c.mu.Lock()
	defer c.mu.Unlock()

	idle := c.now().Sub(c.lastActivity)
	switch {
	case c.phase == Awake && idle > c.cfg.DimAfter:
		if err := c.dimLocked(); err != nil {
			c.log.Error().Err(err).Msg("dim failed")
		}
	case c.phase == Dimmed && idle > c.cfg.OffAfter:
		if err := c.offLocked(); err != nil {
			c.log.Error().Err(err).Msg("screen off failed")
		}
	}
}

// Dim lowers the brightness. It only applies while awake.
func (c *Controller) Dim() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimLocked()
}

func (c *Controller) dimLocked() error {
	if c.phase != Awake {
		return nil
	}
	if err := c.device.SetBrightness(c.cfg.DimBrightness); err != nil {
		return fmt.Errorf("failed to dim: %w", err)
	}
	c.phase = Dimmed
	c.log.Debug().Msg("dimmed")
	return nil
}

// Off turns the backlight off and blanks every key.
func (c *Controller) Off() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offLocked()
}

func (c *Controller) offLocked() error {
	if c.phase == Off {
		return nil
	}
	c.suspended = true
	if err := c.blankLocked(); err != nil {
		c.suspended = false
		return fmt.Errorf("failed to turn screen off: %w", err)
	}
	c.phase = Off
	c.log.Debug().Msg("screen off")
	return nil
}

func (c *Controller) blankLocked() error {
	if err := c.device.SetBrightness(0); err != nil {
		return err
	}
	for key := 0; key < c.device.KeyCount(); key++ {
		if err := c.device.SetKeyImage(key, c.blank); err != nil {
			return err
		}
	}
	return nil
}

// Wake restores full brightness and redraws every key. Activity is
// recorded even if the device fails, in which case the phase stays put.
func (c *Controller) Wake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeLocked()
}

// Activity records a key event and reports whether it should reach a
// button. The phase decision and the activity update happen under one
// lock, so an idle check cannot dim the display in between. While not
// awake a press wakes the display and is consumed; a release is dropped.
func (c *Controller) Activity(pressed bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Awake {
		c.lastActivity = c.now()
		return true, nil
	}
	if !pressed {
		return false, nil
	}
	return false, c.wakeLocked()
}

func (c *Controller) wakeLocked() error {
	defer func() { c.lastActivity = c.now() }()

	if c.phase == Awake {
		return nil
	}

	was := c.suspended
	c.suspended = false
	if err := c.restoreLocked(); err != nil {
		c.suspended = was
		return fmt.Errorf("failed to wake: %w", err)
	}
	c.phase = Awake
	c.log.Debug().Msg("awake")
	return nil
}

func (c *Controller) restoreLocked() error {
	if err := c.device.SetBrightness(c.cfg.Brightness); err != nil {
		return err
	}
	if c.painter == nil {
		return nil
	}
	for key, img := range c.painter.Frames() {
		if err := c.device.SetKeyImage(key, img); err != nil {
			return err
		}
	}
	return nil
}

// Refresh writes one key image unless the display is suspended. It reports
// whether the image was written.
func (c *Controller) Refresh(key int, img image.Image) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return false, nil
	}
	if err := c.device.SetKeyImage(key, img); err != nil {
		return false, fmt.Errorf("failed to draw key %d: %w", key, err)
	}
	return true, nil
}

// Run checks idle time every CheckInterval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	interval := c.cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Check()
		}
	}
}
