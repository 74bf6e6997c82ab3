package camera

// SaturationPercent is the share of pixels at the sensor's maximum code.
// For RGB frames a pixel counts as saturated when any of its channels is.
func SaturationPercent(img *Image) float64 {
	n := img.Width * img.Height
	if n == 0 {
		return 0
	}

	full := img.FullScale()
	saturated := 0
	switch img.Type {
	case ImageRaw16:
		for _, v := range img.Pix16 {
			if int(v) >= full {
				saturated++
			}
		}
	case ImageRGB24:
		for i := 0; i+2 < len(img.Pix8); i += 3 {
			if int(max(img.Pix8[i], img.Pix8[i+1], img.Pix8[i+2])) >= full {
				saturated++
			}
		}
	default:
		for _, v := range img.Pix8 {
			if int(v) >= full {
				saturated++
			}
		}
	}
	return 100 * float64(saturated) / float64(n)
}

// HistogramMaxPercent is the brightest value in the frame as a percentage
// of full scale.
func HistogramMaxPercent(img *Image) float64 {
	maxValue := 0
	if img.Type == ImageRaw16 {
		for _, v := range img.Pix16 {
			maxValue = max(maxValue, int(v))
		}
	} else {
		for _, v := range img.Pix8 {
			maxValue = max(maxValue, int(v))
		}
	}
	return 100 * float64(maxValue) / float64(img.FullScale())
}
