package camera

import (
	"testing"

	"alpacapi/pkg/alpaca"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturationAndHistogram(t *testing.T) {
	tests := []struct {
		name         string
		img          *Image
		saturation   float64
		histogramMax float64
	}{
		{
			name:         "16 bit",
			img:          &Image{Type: ImageRaw16, Width: 4, Height: 1, Pix16: []uint16{0, 1000, 65535, 65535}},
			saturation:   50,
			histogramMax: 100,
		},
		{
			name:         "16 bit unsaturated",
			img:          &Image{Type: ImageRaw16, Width: 2, Height: 1, Pix16: []uint16{0, 32767}},
			saturation:   0,
			histogramMax: 100 * 32767.0 / 65535,
		},
		{
			name:         "12 bit saturates at the sensor maximum",
			img:          &Image{Type: ImageRaw16, Width: 4, Height: 1, MaxValue: 4095, Pix16: []uint16{0, 2047, 4095, 4095}},
			saturation:   50,
			histogramMax: 100,
		},
		{
			name:         "12 bit unsaturated",
			img:          &Image{Type: ImageRaw16, Width: 2, Height: 1, MaxValue: 4095, Pix16: []uint16{0, 3276}},
			saturation:   0,
			histogramMax: 100 * 3276.0 / 4095,
		},
		{
			name:         "8 bit",
			img:          &Image{Type: ImageRaw8, Width: 2, Height: 2, Pix8: []uint8{255, 10, 20, 51}},
			saturation:   25,
			histogramMax: 100,
		},
		{
			name:         "8 bit dark",
			img:          &Image{Type: ImageY8, Width: 2, Height: 1, Pix8: []uint8{0, 51}},
			saturation:   0,
			histogramMax: 20,
		},
		{
			name: "rgb any channel saturates the pixel",
			img: &Image{Type: ImageRGB24, Width: 2, Height: 1, Pix8: []uint8{
				10, 255, 10,
				100, 100, 100,
			}},
			saturation:   50,
			histogramMax: 100,
		},
		{
			name:         "empty",
			img:          &Image{Type: ImageRaw16},
			saturation:   0,
			histogramMax: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.saturation, SaturationPercent(tc.img), 1e-9)
			assert.InDelta(t, tc.histogramMax, HistogramMaxPercent(tc.img), 1e-9)
		})
	}
}

func TestFullScale(t *testing.T) {
	tests := []struct {
		name     string
		img      Image
		expected int
	}{
		{"raw16 default", Image{Type: ImageRaw16}, 65535},
		{"raw16 12 bit", Image{Type: ImageRaw16, MaxValue: 4095}, 4095},
		{"raw16 10 bit", Image{Type: ImageRaw16, MaxValue: 1023}, 1023},
		{"raw8 default", Image{Type: ImageRaw8}, 255},
		{"raw8 ignores a wider code", Image{Type: ImageRaw8, MaxValue: 4095}, 255},
		{"rgb", Image{Type: ImageRGB24, MaxValue: 255}, 255},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.img.FullScale())
		})
	}
}

func TestImageArrayLayout(t *testing.T) {
	t.Run("16 bit", func(t *testing.T) {
		// 3x2 frame, row major
		img := &Image{Type: ImageRaw16, Width: 3, Height: 2, Pix16: []uint16{
			1, 2, 3,
			4, 5, 6,
		}}

		arr, err := img.ImageArray()
		require.NoError(t, err)
		assert.Equal(t, alpaca.ElementInt32, arr.Type)
		assert.Equal(t, alpaca.ElementUInt16, arr.Transmission)
		assert.Equal(t, 2, arr.Rank)
		assert.Equal(t, [3]int{3, 2, 0}, arr.Dims)
		assert.Equal(t, []uint16{1, 4, 2, 5, 3, 6}, arr.Data)
		assert.NoError(t, arr.Validate())
	})

	t.Run("8 bit", func(t *testing.T) {
		img := &Image{Type: ImageRaw8, Width: 2, Height: 2, Pix8: []uint8{1, 2, 3, 4}}

		arr, err := img.ImageArray()
		require.NoError(t, err)
		assert.Equal(t, alpaca.ElementByte, arr.Transmission)
		assert.Equal(t, []uint8{1, 3, 2, 4}, arr.Data)
	})

	t.Run("rgb", func(t *testing.T) {
		img := &Image{Type: ImageRGB24, Width: 2, Height: 1, Pix8: []uint8{
			1, 2, 3,
			4, 5, 6,
		}}

		arr, err := img.ImageArray()
		require.NoError(t, err)
		assert.Equal(t, 3, arr.Rank)
		assert.Equal(t, [3]int{2, 1, 3}, arr.Dims)
		assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6}, arr.Data)
		assert.NoError(t, arr.Validate())
	})

	t.Run("short buffer", func(t *testing.T) {
		img := &Image{Type: ImageRaw16, Width: 3, Height: 2, Pix16: []uint16{1, 2}}
		_, err := img.ImageArray()
		assert.Error(t, err)
	})
}
