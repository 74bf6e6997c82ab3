package camera

import "time"

const (
	// Frames whose brightest pixel lands in this band are well exposed.
	histogramLow    = 90.0
	histogramHigh   = 100.0
	histogramTarget = 95.0

	defaultAdjustStep = 5 * time.Microsecond

	absoluteMinExposure = time.Microsecond
	absoluteMaxExposure = 10 * time.Minute
)

// ExposureLimits bounds the auto-exposure controller.
type ExposureLimits struct {
	Min  time.Duration
	Max  time.Duration
	Step time.Duration
}

// saturationSteps maps a saturation percentage to the divisor of the
// current exposure that is taken off.
var saturationSteps = []struct {
	above   float64
	divisor int64
}{
	{50, 2},
	{40, 3},
	{20, 4},
	{5, 10},
	{1, 20},
	{0.5, 50},
	{0.1, 100},
	{0.01, 200},
	{0.001, 500},
	{0.0001, 1000},
}

// NextExposure returns the exposure for the next frame given the analysis
// of the last one taken at cur.
func NextExposure(cur time.Duration, limits ExposureLimits, saturation, histogramMax float64) time.Duration {
	step := int64(limits.Step / time.Microsecond)
	if step <= 0 {
		step = int64(defaultAdjustStep / time.Microsecond)
	}
	us := int64(cur / time.Microsecond)

	switch {
	case histogramMax >= histogramLow && histogramMax < histogramHigh:
		return cur

	case saturation > 0:
		reduction := int64(1)
		for _, s := range saturationSteps {
			if saturation > s.above {
				reduction = us / s.divisor
				break
			}
		}
		us -= max(reduction, step)

	case histogramMax < 5:
		us += us

	default:
		gain := int64(float64(us) * (histogramTarget - histogramMax) / 100)
		if histogramMax < 30 {
			gain = max(gain, 5*step)
		} else {
			gain = max(gain, step)
		}
		us += gain
	}

	next := time.Duration(us) * time.Microsecond
	if limits.Max > 0 && next > limits.Max {
		next = limits.Max
	}
	if next < limits.Min {
		next = limits.Min
	}
	return min(max(next, absoluteMinExposure), absoluteMaxExposure)
}
