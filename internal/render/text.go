package render

import (
	"image"
	"image/color"
	"strings"

	"github.com/jwulff/deckhand/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LineHeight is the vertical advance between text lines.
const LineHeight = 16

var face = basicfont.Face7x13

// Bounds represents the bounding box of rendered text.
type Bounds struct {
	Width  int
	Height int
}

// MeasureText returns the width in pixels of a single line of text.
func MeasureText(text string) int {
	return font.MeasureString(face, text).Ceil()
}

// TextBounds returns the bounding box for the given text, one line per "\n".
func TextBounds(text string) Bounds {
	if len(text) == 0 {
		return Bounds{}
	}
	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		width = max(width, MeasureText(line))
	}
	return Bounds{
		Width:  width,
		Height: (len(lines)-1)*LineHeight + face.Height,
	}
}

// rgba converts a domain color to an opaque color.RGBA.
func rgba(c domain.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// DrawText draws one line of text with its top-left corner at (x, y).
func DrawText(frame *domain.Frame, text string, x, y int, color domain.RGB) {
	d := font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(rgba(color)),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

// DrawTextCentered draws text centered horizontally within the given width.
func DrawTextCentered(frame *domain.Frame, text string, width, y int, color domain.RGB) {
	x := (width - MeasureText(text)) / 2
	DrawText(frame, text, x, y, color)
}

// DrawLinesCentered draws each line centered, starting at y and advancing
// LineHeight per line.
func DrawLinesCentered(frame *domain.Frame, lines []string, y int, color domain.RGB) {
	for _, line := range lines {
		DrawTextCentered(frame, line, frame.Width, y, color)
		y += LineHeight
	}
}
