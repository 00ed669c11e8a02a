// Package deck drives Stream Deck hardware.
//
// Devices are USB HID. Key images are JPEG, written as a sequence of
// 1024-byte output reports; brightness and reset are feature reports; key
// presses arrive as input reports holding one state byte per key.
package deck

import (
	"errors"
	"image"
)

// ErrKeyOutOfRange is returned for a key index the device does not have.
var ErrKeyOutOfRange = errors.New("key out of range")

// ErrClosed is returned by writes to a device after Close.
var ErrClosed = errors.New("device closed")

// KeyFunc is called on every key transition.
type KeyFunc func(key int, pressed bool)

// Device is a deck of square image keys.
type Device interface {
	// KeyCount returns the number of keys.
	KeyCount() int
	// KeySize returns the key image edge length in pixels.
	KeySize() int
	// Reset clears all keys to the device's default.
	Reset() error
	// SetBrightness sets the backlight percentage, clamped to 0-100.
	SetBrightness(percent int) error
	// SetKeyImage draws img on a key.
	SetKeyImage(key int, img image.Image) error
	// SetKeyCallback installs the key transition handler.
	SetKeyCallback(fn KeyFunc)
	Close() error
}
