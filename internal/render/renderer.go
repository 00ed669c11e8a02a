// Package render draws key faces: background color, optional icon and
// centered label text.
package render

import (
	"image"
	"strings"
	"sync"

	"github.com/jwulff/deckhand/internal/domain"
	xdraw "golang.org/x/image/draw"
)

// Layout for a 72px key. Other key sizes scale proportionally.
const (
	referenceSize     = 72
	iconSizeWithText  = 48
	iconSizeAlone     = 64
	iconTop           = 5
	iconTextGap       = 2
	minIconSizeShrunk = 16
)

// Renderer turns faces into key-sized frames. Decoded icons are cached.
type Renderer struct {
	Size    int
	IconDir string

	mu    sync.Mutex
	icons map[string]image.Image
}

// NewRenderer creates a renderer for square keys of the given size.
func NewRenderer(size int, iconDir string) *Renderer {
	return &Renderer{
		Size:    size,
		IconDir: iconDir,
		icons:   make(map[string]image.Image),
	}
}

// Blank returns a black key image.
func Blank(size int) *domain.Frame {
	return domain.NewFrameWithColor(size, size, ColorBlack)
}

// Render draws a face. A missing or unreadable icon is skipped.
func (r *Renderer) Render(face domain.Face) *domain.Frame {
	frame := domain.NewFrameWithColor(r.Size, r.Size, face.Background)

	var lines []string
	if face.Text != "" {
		lines = strings.Split(face.Text, "\n")
	}

	icon := r.icon(face.Icon)
	if icon == nil {
		if len(lines) > 0 {
			DrawLinesCentered(frame, lines, r.Size/2-len(lines)*LineHeight/2, ColorText)
		}
		return frame
	}

	if len(lines) == 0 {
		size := r.scale(iconSizeAlone)
		r.drawIcon(frame, icon, size, (r.Size-size)/2)
		return frame
	}

	// The icon shrinks to leave room below it for every text line.
	top := r.scale(iconTop)
	size := r.scale(iconSizeWithText)
	if room := r.Size - top - iconTextGap - len(lines)*LineHeight - 1; room < size {
		size = max(room, r.scale(minIconSizeShrunk))
	}
	r.drawIcon(frame, icon, size, top)
	DrawLinesCentered(frame, lines, top+size+iconTextGap, ColorText)
	return frame
}

func (r *Renderer) drawIcon(frame *domain.Frame, icon image.Image, size, y int) {
	scaled := ScaleIcon(icon, size)
	x := (r.Size - size) / 2
	xdraw.Draw(frame, image.Rect(x, y, x+size, y+size), scaled, image.Point{}, xdraw.Over)
}

func (r *Renderer) scale(v int) int {
	return v * r.Size / referenceSize
}

func (r *Renderer) icon(name string) image.Image {
	if name == "" {
		return nil
	}
	path := ResolveIcon(r.IconDir, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.icons == nil {
		r.icons = make(map[string]image.Image)
	}
	if img, ok := r.icons[path]; ok {
		return img
	}
	// Failures are cached too, so a missing icon costs one stat.
	img, _ := LoadIcon(path)
	r.icons[path] = img
	return img
}
