package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextExposure(t *testing.T) {
	limits := ExposureLimits{Min: 32 * time.Microsecond, Max: time.Minute, Step: 5 * time.Microsecond}

	tests := []struct {
		name         string
		cur          time.Duration
		limits       ExposureLimits
		saturation   float64
		histogramMax float64
		expected     time.Duration
	}{
		{"well exposed", time.Second, limits, 0, 95, time.Second},
		{"lower edge of the band", time.Second, limits, 0, 90, time.Second},
		{"heavily saturated halves", time.Second, limits, 60, 100, 500 * time.Millisecond},
		{"saturated above 40 percent", 900 * time.Millisecond, limits, 45, 100, 600 * time.Millisecond},
		{"saturated above 20 percent", time.Second, limits, 30, 100, 750 * time.Millisecond},
		{"saturated above 5 percent", time.Second, limits, 10, 100, 900 * time.Millisecond},
		{"saturated above 1 percent", time.Second, limits, 2, 100, 950 * time.Millisecond},
		{"barely saturated", time.Second, limits, 0.2, 100, 990 * time.Millisecond},
		{"tiny saturation floors at the step", time.Second, limits, 0.00005, 100, time.Second - 5*time.Microsecond},
		{"reduction clamps at the minimum", 20 * time.Microsecond, limits, 10, 100, 32 * time.Microsecond},
		{"very dark doubles", 10 * time.Millisecond, limits, 0, 2, 20 * time.Millisecond},
		{"dark adds at least five steps", 20 * time.Microsecond, limits, 0, 20, 45 * time.Microsecond},
		{"dark proportional", 100 * time.Millisecond, limits, 0, 20, 175 * time.Millisecond},
		{"proportional toward 95", time.Second, limits, 0, 50, 1450 * time.Millisecond},
		{"increase clamps at the maximum", 40 * time.Second, limits, 0, 2, time.Minute},
		{"absolute ceiling", 8 * time.Minute, ExposureLimits{}, 0, 2, 10 * time.Minute},
		{"absolute floor", 0, ExposureLimits{}, 0, 2, time.Microsecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NextExposure(tc.cur, tc.limits, tc.saturation, tc.histogramMax))
		})
	}
}

// expose takes one frame of the simulated scene and analyzes it.
func expose(t *testing.T, sim *Simulator, clock *fakeClock, exposure time.Duration) (float64, float64) {
	t.Helper()

	info := sim.Info()
	format := ImageRaw16
	if info.BitDepth <= 8 {
		format = ImageRaw8
	}
	require.NoError(t, sim.StartExposure(ROI{NumX: info.Width, NumY: info.Height, BinX: 1, BinY: 1}, exposure, format))
	clock.advance(exposure)

	status, _, err := sim.CheckExposure()
	require.NoError(t, err)
	require.Equal(t, ExposureSuccess, status)

	img, err := sim.ReadImage()
	require.NoError(t, err)
	return SaturationPercent(img), HistogramMaxPercent(img)
}

func TestAutoExposureConverges(t *testing.T) {
	// 60% of the pixels saturate at one second; the band is reached between
	// 360 and 400 ms
	tests := []struct {
		name     string
		bitDepth int
		start    time.Duration
	}{
		{"16 bit from saturated", 16, time.Second},
		{"16 bit from dark", 16, 100 * time.Microsecond},
		{"16 bit from slightly bright", 16, 420 * time.Millisecond},
		{"12 bit from saturated", 12, time.Second},
		{"12 bit from dark", 12, 100 * time.Microsecond},
		{"12 bit from the maximum", 12, 2 * time.Second},
		{"8 bit from saturated", 8, time.Second},
		{"8 bit from dark", 8, 100 * time.Microsecond},
		{"8 bit from slightly bright", 8, 420 * time.Millisecond},
	}

	limits := ExposureLimits{Min: 32 * time.Microsecond, Max: 30 * time.Second, Step: 5 * time.Microsecond}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			sim := NewSimulator(SimulatorConfig{Width: 100, Height: 10, BitDepth: tc.bitDepth, PeakRate: 65535 / 0.4})
			sim.now = clock.now

			exposure := tc.start
			lastSaturation := 101.0
			converged := false

			for i := 0; i < 100; i++ {
				saturation, histogramMax := expose(t, sim, clock, exposure)
				assert.LessOrEqual(t, saturation, lastSaturation, "saturation increased at iteration %d", i)
				lastSaturation = saturation

				if histogramMax >= 90 && histogramMax < 100 {
					converged = true
					break
				}

				next := NextExposure(exposure, limits, saturation, histogramMax)
				if saturation > 0 {
					assert.Less(t, next, exposure)
				}
				assert.GreaterOrEqual(t, next, limits.Min)
				assert.LessOrEqual(t, next, limits.Max)
				exposure = next
			}

			assert.True(t, converged, "did not converge, last exposure %v", exposure)
			assert.Equal(t, exposure, NextExposure(exposure, limits, 0, 95))
		})
	}
}

func TestAutoExposureFirstStepFromSaturation(t *testing.T) {
	limits := ExposureLimits{Min: 32 * time.Microsecond, Max: 30 * time.Second}

	for _, bitDepth := range []int{8, 12, 16} {
		clock := newFakeClock()
		sim := NewSimulator(SimulatorConfig{Width: 100, Height: 10, BitDepth: bitDepth, PeakRate: 65535 / 0.4})
		sim.now = clock.now

		saturation, histogramMax := expose(t, sim, clock, time.Second)
		assert.InDelta(t, 60, saturation, 0.5, "%d bit", bitDepth)
		assert.Equal(t, 100.0, histogramMax, "%d bit", bitDepth)
		assert.Less(t, NextExposure(time.Second, limits, saturation, histogramMax), time.Second)
	}
}
