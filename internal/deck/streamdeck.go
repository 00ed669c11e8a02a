package deck

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sstallion/go-hid"
)

const readTimeout = 100 * time.Millisecond

// Info describes an attached deck.
type Info struct {
	Path   string
	Serial string
	Model  Model
}

// Init initializes the HID library. Call Exit when done.
func Init() error {
	return hid.Init()
}

// Exit releases the HID library.
func Exit() error {
	return hid.Exit()
}

// Enumerate lists attached decks of supported models.
func Enumerate() ([]Info, error) {
	var found []Info
	err := hid.Enumerate(VendorID, 0, func(info *hid.DeviceInfo) error {
		model, ok := LookupModel(info.ProductID)
		if !ok {
			return nil
		}
		found = append(found, Info{Path: info.Path, Serial: info.SerialNbr, Model: model})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return found, nil
}

// StreamDeck is a Device backed by USB HID.
type StreamDeck struct {
	info Info
	dev  *hid.Device
	log  zerolog.Logger

	// mu serializes writes to the device and guards closed.
	mu     sync.Mutex
	closed bool

	cbMu     sync.Mutex
	callback KeyFunc

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Open opens a deck and starts reading key events.
func Open(info Info, log zerolog.Logger) (*StreamDeck, error) {
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", info.Model.Name, err)
	}
	d := &StreamDeck{
		info: info,
		dev:  dev,
		log:  log.With().Str("component", "deck").Str("model", info.Model.Name).Logger(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if serial, err := d.Serial(); err == nil && serial != "" {
		d.info.Serial = serial
	}
	go d.readLoop()
	return d, nil
}

// OpenFirst opens the first attached deck.
func OpenFirst(log zerolog.Logger) (*StreamDeck, error) {
	decks, err := Enumerate()
	if err != nil {
		return nil, err
	}
	if len(decks) == 0 {
		return nil, errors.New("no Stream Deck found")
	}
	return Open(decks[0], log)
}

// Info returns the device description.
func (d *StreamDeck) Info() Info {
	return d.info
}

func (d *StreamDeck) KeyCount() int {
	return d.info.Model.KeyCount()
}

func (d *StreamDeck) KeySize() int {
	return d.info.Model.KeySize
}

// Serial queries the serial number from the device.
func (d *StreamDeck) Serial() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrClosed
	}

	report := SerialReport()
	n, err := d.dev.GetFeatureReport(report)
	if err != nil {
		return "", fmt.Errorf("failed to read serial: %w", err)
	}
	return ParseSerial(report[:n]), nil
}

func (d *StreamDeck) Reset() error {
	return d.sendFeature(ResetReport())
}

func (d *StreamDeck) SetBrightness(percent int) error {
	return d.sendFeature(BrightnessReport(percent))
}

func (d *StreamDeck) SetKeyImage(key int, img image.Image) error {
	if key < 0 || key >= d.KeyCount() {
		return fmt.Errorf("%w: %d", ErrKeyOutOfRange, key)
	}
	data, err := EncodeKeyImage(img, d.KeySize())
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	for _, report := range ImageReports(key, data) {
		if _, err := d.dev.Write(report); err != nil {
			return fmt.Errorf("failed to write key %d image: %w", key, err)
		}
	}
	return nil
}

func (d *StreamDeck) SetKeyCallback(fn KeyFunc) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.callback = fn
}

// Close stops the reader and closes the device. Safe to call more than once.
func (d *StreamDeck) Close() error {
	var err error
	d.once.Do(func() {
		close(d.stop)
		<-d.done
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closed = true
		err = d.dev.Close()
	})
	return err
}

func (d *StreamDeck) sendFeature(report []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if _, err := d.dev.SendFeatureReport(report); err != nil {
		return fmt.Errorf("failed to send feature report 0x%02x: %w", report[1], err)
	}
	return nil
}

// readLoop polls input reports and reports transitions. The read timeout
// bounds how long Close waits.
func (d *StreamDeck) readLoop() {
	defer close(d.done)

	buf := make([]byte, KeyStateOffset+d.KeyCount())
	previous := make([]bool, d.KeyCount())
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		n, err := d.dev.ReadWithTimeout(buf, readTimeout)
		if errors.Is(err, hid.ErrTimeout) || (err == nil && n == 0) {
			continue
		}
		if err != nil {
			d.log.Error().Err(err).Msg("key reader stopped")
			return
		}

		states, err := DecodeKeyStates(buf[:n], d.KeyCount())
		if err != nil {
			d.log.Debug().Err(err).Msg("ignoring report")
			continue
		}
		for key, pressed := range states {
			if pressed == previous[key] {
				continue
			}
			previous[key] = pressed
			d.fire(key, pressed)
		}
	}
}

func (d *StreamDeck) fire(key int, pressed bool) {
	d.cbMu.Lock()
	fn := d.callback
	d.cbMu.Unlock()
	if fn != nil {
		fn(key, pressed)
	}
}

var _ Device = (*StreamDeck)(nil)
