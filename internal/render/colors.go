package render

import (
	"strings"

	"github.com/jwulff/deckhand/internal/domain"
)

// Common colors for key faces.
var (
	ColorBlack = domain.NewRGB(0, 0, 0)
	ColorBg    = ColorBlack
	ColorWhite = domain.NewRGB(255, 255, 255)
	ColorText  = ColorWhite

	// Key backgrounds
	ColorBlue    = domain.NewRGB(0x1e, 0x88, 0xe5)
	ColorRed     = domain.NewRGB(0xe5, 0x39, 0x35)
	ColorDarkRed = domain.NewRGB(0xc6, 0x28, 0x28)
	ColorAmber   = domain.NewRGB(0xfb, 0xc0, 0x2d)
	ColorIndigo  = domain.NewRGB(0x39, 0x49, 0xab)
	ColorGreen   = domain.NewRGB(0x1d, 0xb9, 0x54)
	ColorPurple  = domain.NewRGB(0x5e, 0x35, 0xb1)
	ColorTeal    = domain.NewRGB(0x00, 0x69, 0x5c)
	ColorOrange  = domain.NewRGB(0xf5, 0x7f, 0x17)

	// Watched entity states
	ColorActive   = domain.NewRGB(0xe6, 0x51, 0x00)
	ColorInactive = domain.NewRGB(0x61, 0x61, 0x61)
)

var namedColors = map[string]domain.RGB{
	"black":    ColorBlack,
	"white":    ColorWhite,
	"blue":     ColorBlue,
	"red":      ColorRed,
	"darkred":  ColorDarkRed,
	"amber":    ColorAmber,
	"indigo":   ColorIndigo,
	"green":    ColorGreen,
	"purple":   ColorPurple,
	"teal":     ColorTeal,
	"orange":   ColorOrange,
	"active":   ColorActive,
	"inactive": ColorInactive,
}

// ParseColor accepts a palette name ("blue") or a hex color ("#1e88e5").
func ParseColor(s string) (domain.RGB, error) {
	if c, ok := namedColors[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return domain.ParseHex(s)
}

// DimColor reduces the brightness of a color by a factor (0-1).
func DimColor(c domain.RGB, factor float64) domain.RGB {
	if factor <= 0 {
		return ColorBlack
	}
	if factor >= 1 {
		return c
	}
	return domain.NewRGB(
		uint8(float64(c.R)*factor),
		uint8(float64(c.G)*factor),
		uint8(float64(c.B)*factor),
	)
}

// Luminance returns the perceived brightness of c in the range 0-255.
func Luminance(c domain.RGB) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}
