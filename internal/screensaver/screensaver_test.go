package screensaver

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/deckhand/internal/deck"
	"github.com/jwulff/deckhand/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type staticPainter map[int]image.Image

func (p staticPainter) Frames() map[int]image.Image { return p }

var red = domain.NewRGB(255, 0, 0)

func setup(t *testing.T) (*Controller, *deck.Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	dev := deck.NewMemory(4, 8)
	c := newController(DefaultConfig(), dev, zerolog.Nop(), clock.Now)
	c.SetPainter(staticPainter{
		0: domain.NewFrameWithColor(8, 8, red),
		2: domain.NewFrameWithColor(8, 8, red),
	})
	return c, dev, clock
}

func keyColor(t *testing.T, dev *deck.Memory, key int) domain.RGB {
	t.Helper()
	img, ok := dev.Image(key)
	require.True(t, ok, "key %d was never drawn", key)
	r, g, b, _ := img.At(0, 0).RGBA()
	return domain.NewRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

func TestInitialPhase(t *testing.T) {
	c, _, _ := setup(t)
	assert.Equal(t, Awake, c.Phase())
	assert.False(t, c.Suspended())
	assert.Zero(t, c.Idle())
}

func TestCheckBeforeThresholdDoesNothing(t *testing.T) {
	c, dev, clock := setup(t)

	clock.Advance(150 * time.Second)
	c.Check()

	assert.Equal(t, Awake, c.Phase())
	assert.Equal(t, -1, dev.Brightness())
}

func TestCheckDimsWithoutSkippingToOff(t *testing.T) {
	c, dev, clock := setup(t)

	clock.Advance(200 * time.Second)
	c.Check()

	assert.Equal(t, Dimmed, c.Phase())
	assert.Equal(t, 30, dev.Brightness())
	assert.False(t, c.Suspended())
}

func TestCheckAdvancesOneStepPerCycle(t *testing.T) {
	c, dev, clock := setup(t)

	// Both thresholds passed: the first check only dims.
	clock.Advance(time.Hour)
	c.Check()
	assert.Equal(t, Dimmed, c.Phase())

	c.Check()
	assert.Equal(t, Off, c.Phase())
	assert.True(t, c.Suspended())
	assert.Equal(t, []int{30, 0}, dev.BrightnessHistory())
	for key := 0; key < 4; key++ {
		assert.Equal(t, domain.NewRGB(0, 0, 0), keyColor(t, dev, key))
	}

	c.Check()
	assert.Equal(t, Off, c.Phase())
	assert.Equal(t, []int{30, 0}, dev.BrightnessHistory())
}

func TestDimmedWaitsForOffThreshold(t *testing.T) {
	c, _, clock := setup(t)

	clock.Advance(160 * time.Second)
	c.Check()
	clock.Advance(100 * time.Second)
	c.Check()

	assert.Equal(t, Dimmed, c.Phase())

	clock.Advance(50 * time.Second)
	c.Check()
	assert.Equal(t, Off, c.Phase())
}

func TestTouchResetsIdle(t *testing.T) {
	c, _, clock := setup(t)

	clock.Advance(140 * time.Second)
	c.Touch()
	clock.Advance(140 * time.Second)
	c.Check()

	assert.Equal(t, Awake, c.Phase())
	assert.Equal(t, 140*time.Second, c.Idle())
}

func TestWakeFromOffRedrawsEveryButton(t *testing.T) {
	c, dev, clock := setup(t)
	clock.Advance(time.Hour)
	c.Check()
	c.Check()
	require.Equal(t, Off, c.Phase())

	require.NoError(t, c.Wake())

	assert.Equal(t, Awake, c.Phase())
	assert.False(t, c.Suspended())
	assert.Equal(t, 100, dev.Brightness())
	assert.Equal(t, red, keyColor(t, dev, 0))
	assert.Equal(t, red, keyColor(t, dev, 2))
	assert.Zero(t, c.Idle())
}

func TestWakeWhileAwakeOnlyTouches(t *testing.T) {
	c, dev, clock := setup(t)
	clock.Advance(100 * time.Second)

	require.NoError(t, c.Wake())

	assert.Equal(t, Awake, c.Phase())
	assert.Equal(t, 0, dev.Writes())
	assert.Equal(t, -1, dev.Brightness())
	assert.Zero(t, c.Idle())
}

func TestActivityWhileAwakePreventsDim(t *testing.T) {
	c, dev, clock := setup(t)
	clock.Advance(160 * time.Second)

	deliver, err := c.Activity(true)
	require.NoError(t, err)
	assert.True(t, deliver)

	c.Check()
	assert.Equal(t, Awake, c.Phase())
	assert.Equal(t, -1, dev.Brightness())
}

func TestActivityAfterDimWakesInsteadOfDelivering(t *testing.T) {
	c, dev, clock := setup(t)
	clock.Advance(160 * time.Second)
	c.Check()
	require.Equal(t, Dimmed, c.Phase())

	deliver, err := c.Activity(true)
	require.NoError(t, err)
	assert.False(t, deliver)
	assert.Equal(t, Awake, c.Phase())
	assert.Equal(t, 100, dev.Brightness())

	// The display stays awake through the next check.
	c.Check()
	assert.Equal(t, Awake, c.Phase())
}

func TestActivityReleaseWhileNotAwakeIsDropped(t *testing.T) {
	c, dev, clock := setup(t)
	clock.Advance(160 * time.Second)
	c.Check()
	writes := dev.Writes()

	deliver, err := c.Activity(false)
	require.NoError(t, err)
	assert.False(t, deliver)
	assert.Equal(t, Dimmed, c.Phase())
	assert.Equal(t, writes, dev.Writes())
	assert.Equal(t, 160*time.Second, c.Idle())
}

func TestActivityRacingCheckNeverLeavesDimmedWhileActive(t *testing.T) {
	c, _, clock := setup(t)
	clock.Advance(160 * time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.Check() }()
	go func() {
		defer wg.Done()
		_, err := c.Activity(true)
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Either the press came first and kept the display awake, or the
	// check dimmed first and the press woke it. Both end awake.
	assert.Equal(t, Awake, c.Phase())
	assert.Zero(t, c.Idle())
}

func TestDeviceErrorLeavesPhaseUnchanged(t *testing.T) {
	c, dev, clock := setup(t)
	boom := errors.New("usb gone")

	dev.Fail(boom)
	clock.Advance(200 * time.Second)
	c.Check()
	assert.Equal(t, Awake, c.Phase())

	assert.ErrorIs(t, c.Dim(), boom)
	assert.Equal(t, Awake, c.Phase())

	dev.Fail(nil)
	require.NoError(t, c.Dim())
	dev.Fail(boom)

	assert.ErrorIs(t, c.Off(), boom)
	assert.Equal(t, Dimmed, c.Phase())
	assert.False(t, c.Suspended())

	dev.Fail(nil)
	require.NoError(t, c.Off())
	dev.Fail(boom)

	assert.ErrorIs(t, c.Wake(), boom)
	assert.Equal(t, Off, c.Phase())
	assert.True(t, c.Suspended())
}

func TestRefreshSuppressedWhileOff(t *testing.T) {
	c, dev, _ := setup(t)
	green := domain.NewFrameWithColor(8, 8, domain.NewRGB(0, 255, 0))

	written, err := c.Refresh(1, green)
	require.NoError(t, err)
	assert.True(t, written)

	require.NoError(t, c.Off())
	writes := dev.Writes()

	written, err = c.Refresh(1, domain.NewFrameWithColor(8, 8, red))
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, writes, dev.Writes())
	assert.Equal(t, domain.NewRGB(0, 0, 0), keyColor(t, dev, 1))
}

func TestRefreshWhileDimmedStillDraws(t *testing.T) {
	c, dev, _ := setup(t)
	require.NoError(t, c.Dim())

	written, err := c.Refresh(3, domain.NewFrameWithColor(8, 8, red))
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, red, keyColor(t, dev, 3))
}

func TestDimOnlyFromAwake(t *testing.T) {
	c, dev, _ := setup(t)
	require.NoError(t, c.Off())

	require.NoError(t, c.Dim())

	assert.Equal(t, Off, c.Phase())
	assert.Equal(t, []int{0}, dev.BrightnessHistory())
}

func TestRunStopsOnCancel(t *testing.T) {
	dev := deck.NewMemory(1, 8)
	cfg := DefaultConfig()
	cfg.CheckInterval = time.Millisecond
	cfg.DimAfter = 0
	c := New(cfg, dev, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Phase() == Dimmed }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "awake", Awake.String())
	assert.Equal(t, "dimmed", Dimmed.String())
	assert.Equal(t, "off", Off.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}
