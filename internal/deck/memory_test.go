package deck

import (
	"errors"
	"testing"

	"github.com/jwulff/deckhand/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordsWrites(t *testing.T) {
	m := NewMemory(15, 72)

	require.NoError(t, m.SetBrightness(100))
	require.NoError(t, m.SetBrightness(30))
	require.NoError(t, m.SetKeyImage(4, domain.NewFrameWithColor(72, 72, domain.NewRGB(1, 2, 3))))

	assert.Equal(t, 30, m.Brightness())
	assert.Equal(t, []int{100, 30}, m.BrightnessHistory())
	assert.Equal(t, 1, m.Writes())

	img, ok := m.Image(4)
	require.True(t, ok)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestMemoryKeyOutOfRange(t *testing.T) {
	m := NewMemory(15, 72)
	err := m.SetKeyImage(15, domain.NewFrame(72, 72))
	assert.ErrorIs(t, err, ErrKeyOutOfRange)
}

func TestMemoryFail(t *testing.T) {
	m := NewMemory(15, 72)
	boom := errors.New("unplugged")

	m.Fail(boom)
	assert.ErrorIs(t, m.SetBrightness(30), boom)
	assert.ErrorIs(t, m.Reset(), boom)
	assert.ErrorIs(t, m.SetKeyImage(0, domain.NewFrame(72, 72)), boom)
	assert.Equal(t, -1, m.Brightness())

	m.Fail(nil)
	assert.NoError(t, m.SetBrightness(30))
}

func TestMemoryPressInvokesCallback(t *testing.T) {
	m := NewMemory(15, 72)
	type event struct {
		key     int
		pressed bool
	}
	var events []event
	m.SetKeyCallback(func(key int, pressed bool) {
		events = append(events, event{key, pressed})
	})

	m.Press(3)
	m.Release(3)

	assert.Equal(t, []event{{3, true}, {3, false}}, events)
}

func TestMemoryResetAndClose(t *testing.T) {
	m := NewMemory(15, 72)
	require.NoError(t, m.SetKeyImage(0, domain.NewFrame(72, 72)))

	require.NoError(t, m.Reset())
	_, ok := m.Image(0)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Resets())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}

func TestMemoryWritesAfterCloseFail(t *testing.T) {
	m := NewMemory(15, 72)
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.SetKeyImage(0, domain.NewFrame(72, 72)), ErrClosed)
	assert.ErrorIs(t, m.SetBrightness(50), ErrClosed)
	assert.ErrorIs(t, m.Reset(), ErrClosed)
	assert.Zero(t, m.Writes())
	assert.NoError(t, m.Close())
}
