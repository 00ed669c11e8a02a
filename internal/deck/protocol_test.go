package deck

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrightnessReport(t *testing.T) {
	report := BrightnessReport(30)
	assert.Len(t, report, FeatureReportLength)
	assert.Equal(t, []byte{0x03, 0x08, 30}, report[:3])
	assert.Equal(t, make([]byte, FeatureReportLength-3), report[3:])
}

func TestBrightnessReportClamping(t *testing.T) {
	assert.Equal(t, byte(0), BrightnessReport(-10)[2])
	assert.Equal(t, byte(100), BrightnessReport(150)[2])
}

func TestResetReport(t *testing.T) {
	report := ResetReport()
	assert.Len(t, report, FeatureReportLength)
	assert.Equal(t, []byte{0x03, 0x02}, report[:2])
}

func TestParseSerial(t *testing.T) {
	report := SerialReport()
	copy(report[2:], "CL12K1A00042")
	assert.Equal(t, "CL12K1A00042", ParseSerial(report))
	assert.Equal(t, "", ParseSerial([]byte{0x06}))
}

func TestLookupModel(t *testing.T) {
	m, ok := LookupModel(0x0080)
	require.True(t, ok)
	assert.Equal(t, 15, m.KeyCount())
	assert.Equal(t, 72, m.KeySize)

	m, ok = LookupModel(0x008f)
	require.True(t, ok)
	assert.Equal(t, 32, m.KeyCount())
	assert.Equal(t, 96, m.KeySize)

	_, ok = LookupModel(0x0060)
	assert.False(t, ok)
}

func TestImageReportsSinglePage(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 100)

	reports := ImageReports(7, data)

	require.Len(t, reports, 1)
	r := reports[0]
	assert.Len(t, r, ImageReportLength)
	assert.Equal(t, []byte{0x02, 0x07, 7, 1, 100, 0, 0, 0}, r[:ImageReportHeaderLength])
	assert.Equal(t, data, r[ImageReportHeaderLength:ImageReportHeaderLength+100])
	assert.Zero(t, r[ImageReportHeaderLength+100])
}

func TestImageReportsMultiplePages(t *testing.T) {
	data := make([]byte, 2*ImageReportPayload+10)
	for i := range data {
		data[i] = byte(i)
	}

	reports := ImageReports(3, data)

	require.Len(t, reports, 3)
	// 1016 = 0x03f8
	assert.Equal(t, []byte{0x02, 0x07, 3, 0, 0xf8, 0x03, 0, 0}, reports[0][:8])
	assert.Equal(t, []byte{0x02, 0x07, 3, 0, 0xf8, 0x03, 1, 0}, reports[1][:8])
	assert.Equal(t, []byte{0x02, 0x07, 3, 1, 10, 0, 2, 0}, reports[2][:8])

	var joined []byte
	for i, r := range reports {
		n := int(r[4]) | int(r[5])<<8
		joined = append(joined, r[8:8+n]...)
		assert.Equal(t, i, int(r[6])|int(r[7])<<8)
	}
	assert.Equal(t, data, joined)
}

func TestImageReportsExactMultiple(t *testing.T) {
	reports := ImageReports(0, make([]byte, ImageReportPayload))
	require.Len(t, reports, 1)
	assert.Equal(t, byte(1), reports[0][3])
}

func TestEncodeKeyImageRotates(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 72, 72))
	// Top-left quadrant red, rest black.
	for y := 0; y < 36; y++ {
		for x := 0; x < 36; x++ {
			img.Set(x, y, color.RGBA{R: 0xff, A: 0xff})
		}
	}

	data, err := EncodeKeyImage(img, 72)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 72, decoded.Bounds().Dx())

	// After a 180 degree turn the red quadrant is bottom-right.
	r, _, _, _ := decoded.At(60, 60).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	r, _, _, _ = decoded.At(10, 10).RGBA()
	assert.Less(t, r>>8, uint32(50))
}

func TestEncodeKeyImageScales(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 72, 72))

	data, err := EncodeKeyImage(img, 96)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Width)
	assert.Equal(t, 96, cfg.Height)
}

func TestDecodeKeyStates(t *testing.T) {
	report := make([]byte, KeyStateOffset+15)
	report[0] = 0x01
	report[KeyStateOffset+2] = 1
	report[KeyStateOffset+14] = 1

	states, err := DecodeKeyStates(report, 15)
	require.NoError(t, err)
	assert.True(t, states[2])
	assert.True(t, states[14])
	assert.False(t, states[0])

	_, err = DecodeKeyStates(report[:10], 15)
	assert.Error(t, err)
}
