package deck

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// VendorID is Elgato's USB vendor id.
const VendorID = 0x0fd9

// Report layout shared by the supported models.
const (
	ImageReportLength       = 1024
	ImageReportHeaderLength = 8
	ImageReportPayload      = ImageReportLength - ImageReportHeaderLength
	FeatureReportLength     = 32
	KeyStateOffset          = 4
	jpegQuality             = 95
)

// Model describes one Stream Deck product.
type Model struct {
	Name      string
	ProductID uint16
	Cols      int
	Rows      int
	KeySize   int
}

// KeyCount returns the number of keys.
func (m Model) KeyCount() int {
	return m.Cols * m.Rows
}

// Supported models.
var (
	ModelOriginalV2 = Model{Name: "Stream Deck Original V2", ProductID: 0x006d, Cols: 5, Rows: 3, KeySize: 72}
	ModelMK2        = Model{Name: "Stream Deck MK.2", ProductID: 0x0080, Cols: 5, Rows: 3, KeySize: 72}
	ModelXL         = Model{Name: "Stream Deck XL", ProductID: 0x006c, Cols: 8, Rows: 4, KeySize: 96}
	ModelXLV2       = Model{Name: "Stream Deck XL V2", ProductID: 0x008f, Cols: 8, Rows: 4, KeySize: 96}
)

var models = map[uint16]Model{
	ModelOriginalV2.ProductID: ModelOriginalV2,
	ModelMK2.ProductID:        ModelMK2,
	ModelXL.ProductID:         ModelXL,
	ModelXLV2.ProductID:       ModelXLV2,
}

// LookupModel returns the model for a product id.
func LookupModel(productID uint16) (Model, bool) {
	m, ok := models[productID]
	return m, ok
}

// BrightnessReport creates the feature report setting the backlight.
func BrightnessReport(percent int) []byte {
	// Clamp to 0-100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	report := make([]byte, FeatureReportLength)
	report[0] = 0x03
	report[1] = 0x08
	report[2] = byte(percent)
	return report
}

// ResetReport creates the feature report that resets the key images.
func ResetReport() []byte {
	report := make([]byte, FeatureReportLength)
	report[0] = 0x03
	report[1] = 0x02
	return report
}

// SerialReport creates the buffer for reading the serial number feature report.
func SerialReport() []byte {
	report := make([]byte, FeatureReportLength)
	report[0] = 0x06
	return report
}

// ParseSerial extracts the serial number from a serial feature report.
func ParseSerial(report []byte) string {
	if len(report) <= 2 {
		return ""
	}
	return string(bytes.TrimRight(report[2:], "\x00 "))
}

// EncodeKeyImage converts img to the device's native key format: scaled to
// size, rotated 180 degrees, JPEG encoded.
func EncodeKeyImage(img image.Image, size int) ([]byte, error) {
	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
		xdraw.Draw(scaled, scaled.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)
	}

	flipped := image.NewRGBA(scaled.Bounds())
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			flipped.SetRGBA(size-1-x, size-1-y, scaled.RGBAAt(x, y))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flipped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode key image: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageReports splits encoded image data into output reports for one key.
// Each report is ImageReportLength bytes, zero padded.
func ImageReports(key int, data []byte) [][]byte {
	var reports [][]byte
	for page := 0; ; page++ {
		start := page * ImageReportPayload
		end := min(start+ImageReportPayload, len(data))
		chunk := data[start:end]

		last := byte(0)
		if end == len(data) {
			last = 1
		}

		report := make([]byte, ImageReportLength)
		report[0] = 0x02
		report[1] = 0x07
		report[2] = byte(key)
		report[3] = last
		report[4] = byte(len(chunk) & 0xff)
		report[5] = byte(len(chunk) >> 8)
		report[6] = byte(page & 0xff)
		report[7] = byte(page >> 8)
		copy(report[ImageReportHeaderLength:], chunk)
		reports = append(reports, report)

		if last == 1 {
			return reports
		}
	}
}

// DecodeKeyStates reads the per-key pressed flags from an input report.
func DecodeKeyStates(report []byte, keyCount int) ([]bool, error) {
	if len(report) < KeyStateOffset+keyCount {
		return nil, fmt.Errorf("short key report: %d bytes for %d keys", len(report), keyCount)
	}
	states := make([]bool, keyCount)
	for i := range states {
		states[i] = report[KeyStateOffset+i] != 0
	}
	return states, nil
}
