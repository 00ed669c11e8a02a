package deck

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
)

// Memory is an in-memory Device. It records what was written and lets
// callers simulate key presses.
type Memory struct {
	mu         sync.Mutex
	keys       int
	size       int
	brightness []int
	images     map[int]*image.RGBA
	writes     int
	resets     int
	closed     bool
	err        error
	callback   KeyFunc
}

// NewMemory creates a memory device with keys keys of size×size pixels.
func NewMemory(keys, size int) *Memory {
	return &Memory{
		keys:   keys,
		size:   size,
		images: make(map[int]*image.RGBA),
	}
}

func (m *Memory) KeyCount() int { return m.keys }

func (m *Memory) KeySize() int { return m.size }

func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unusable(); err != nil {
		return err
	}
	m.resets++
	m.images = make(map[int]*image.RGBA)
	return nil
}

func (m *Memory) SetBrightness(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unusable(); err != nil {
		return err
	}
	m.brightness = append(m.brightness, min(max(percent, 0), 100))
	return nil
}

func (m *Memory) SetKeyImage(key int, img image.Image) error {
	if key < 0 || key >= m.keys {
		return fmt.Errorf("%w: %d", ErrKeyOutOfRange, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unusable(); err != nil {
		return err
	}
	b := img.Bounds()
	copied := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(copied, copied.Bounds(), img, b.Min, draw.Src)
	m.images[key] = copied
	m.writes++
	return nil
}

func (m *Memory) SetKeyCallback(fn KeyFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = fn
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) unusable() error {
	if m.closed {
		return ErrClosed
	}
	return m.err
}

// Fail makes every later device operation return err. Pass nil to recover.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Press simulates pressing a key.
func (m *Memory) Press(key int) {
	m.fire(key, true)
}

// Release simulates releasing a key.
func (m *Memory) Release(key int) {
	m.fire(key, false)
}

func (m *Memory) fire(key int, pressed bool) {
	m.mu.Lock()
	fn := m.callback
	m.mu.Unlock()
	if fn != nil {
		fn(key, pressed)
	}
}

// Brightness returns the last brightness set, or -1 if none was.
func (m *Memory) Brightness() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.brightness) == 0 {
		return -1
	}
	return m.brightness[len(m.brightness)-1]
}

// BrightnessHistory returns every brightness set, in order.
func (m *Memory) BrightnessHistory() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.brightness...)
}

// Image returns the last image written to key.
func (m *Memory) Image(key int) (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[key]
	return img, ok
}

// Writes returns the number of key images written.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Resets returns the number of resets.
func (m *Memory) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Device = (*Memory)(nil)
