// Package domain contains core domain types for the deckhand bridge.
package domain

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// BytesPerPixel is the number of bytes per pixel (RGB).
const BytesPerPixel = 3

// RGB represents an RGB color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// NewRGB creates a new RGB color.
func NewRGB(r, g, b uint8) RGB {
	return RGB{R: r, G: g, B: b}
}

// ParseHex parses a "#rrggbb" (or "rrggbb") color string.
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseHex is like ParseHex but panics on malformed input. Use it for constants.
func MustParseHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Brighten blends each channel toward white by factor (0-1).
// Results are truncated and clamped to the 0-255 range.
func (c RGB) Brighten(factor float64) RGB {
	return RGB{
		R: blendToWhite(c.R, factor),
		G: blendToWhite(c.G, factor),
		B: blendToWhite(c.B, factor),
	}
}

func blendToWhite(v uint8, factor float64) uint8 {
	out := int(float64(v) + float64(255-int(v))*factor)
	if out > 255 {
		return 255
	}
	if out < 0 {
		return 0
	}
	return uint8(out)
}

// Equals checks if two RGB colors are equal.
func (c RGB) Equals(other RGB) bool {
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// String returns a string representation of the RGB color.
func (c RGB) String() string {
	return fmt.Sprintf("RGB(%d, %d, %d)", c.R, c.G, c.B)
}

// Frame represents a single key image of pixel data.
// It implements draw.Image so fonts and icons can be drawn onto it directly.
type Frame struct {
	Width  int
	Height int
	// Pixels is a flat array of RGB values: [r0,g0,b0, r1,g1,b1, ...]
	Pixels []byte
}

// NewFrame creates a new frame filled with black (0, 0, 0).
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height*BytesPerPixel),
	}
}

// NewFrameWithColor creates a new frame filled with the specified color.
func NewFrameWithColor(width, height int, color RGB) *Frame {
	f := NewFrame(width, height)
	f.Fill(color)
	return f
}

// SetPixel sets a single pixel in the frame. Out of bounds coordinates are silently ignored.
func (f *Frame) SetPixel(x, y int, color RGB) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	offset := (y*f.Width + x) * BytesPerPixel
	f.Pixels[offset] = color.R
	f.Pixels[offset+1] = color.G
	f.Pixels[offset+2] = color.B
}

// GetPixel returns the color at the specified coordinates, or nil if out of bounds.
func (f *Frame) GetPixel(x, y int) *RGB {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return nil
	}
	offset := (y*f.Width + x) * BytesPerPixel
	return &RGB{
		R: f.Pixels[offset],
		G: f.Pixels[offset+1],
		B: f.Pixels[offset+2],
	}
}

// Fill fills the entire frame with the specified color.
func (f *Frame) Fill(color RGB) {
	for i := 0; i < f.Width*f.Height; i++ {
		offset := i * BytesPerPixel
		f.Pixels[offset] = color.R
		f.Pixels[offset+1] = color.G
		f.Pixels[offset+2] = color.B
	}
}

// Clone creates a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	clone := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pixels: make([]byte, len(f.Pixels)),
	}
	copy(clone.Pixels, f.Pixels)
	return clone
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	p := f.GetPixel(x, y)
	if p == nil {
		return color.RGBA{}
	}
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}

// Set implements draw.Image. Alpha is composited over the existing pixel.
func (f *Frame) Set(x, y int, c color.Color) {
	existing := f.GetPixel(x, y)
	if existing == nil {
		return
	}
	r, g, b, a := c.RGBA()
	if a == 0xffff {
		f.SetPixel(x, y, RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)})
		return
	}
	// c is premultiplied; blend over the opaque background.
	inv := 0xffff - a
	f.SetPixel(x, y, RGB{
		R: uint8((r + uint32(existing.R)*0x101*inv/0xffff) >> 8),
		G: uint8((g + uint32(existing.G)*0x101*inv/0xffff) >> 8),
		B: uint8((b + uint32(existing.B)*0x101*inv/0xffff) >> 8),
	})
}
