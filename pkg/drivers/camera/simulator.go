package camera

import (
	"errors"
	"math"
	"sync"
	"time"
)

var errNoImage = errors.New("no image available")

// SimulatorConfig sets up a simulated sensor.
type SimulatorConfig struct {
	Width    int
	Height   int
	BitDepth int
	Color    bool

	// PeakRate is the signal of the brightest scene pixel in ADU per second
	// at 16 bits.
	PeakRate    float64
	ExposureMin time.Duration
	ExposureMax time.Duration
	Temperature float64
}

// Simulator is a sensor looking at a static scene whose brightness rises
// linearly from the first to the last pixel. Pixel values grow with the
// exposure time until they saturate.
type Simulator struct {
	mu   sync.Mutex
	info SensorInfo
	cfg  SimulatorConfig
	now  func() time.Time

	exposing bool
	start    time.Time
	duration time.Duration
	roi      ROI
	format   ImageType
	image    *Image
	failNext bool
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.BitDepth <= 0 {
		cfg.BitDepth = 16
	}
	if cfg.PeakRate <= 0 {
		cfg.PeakRate = 100000
	}
	if cfg.ExposureMin <= 0 {
		cfg.ExposureMin = 32 * time.Microsecond
	}
	if cfg.ExposureMax <= 0 {
		cfg.ExposureMax = 10 * time.Minute
	}

	sensorType := SensorMonochrome
	if cfg.Color {
		sensorType = SensorColor
	}

	return &Simulator{
		cfg: cfg,
		now: time.Now,
		info: SensorInfo{
			Width:       cfg.Width,
			Height:      cfg.Height,
			BitDepth:    cfg.BitDepth,
			Type:        sensorType,
			PixelSizeUm: 3.75,
			MaxBin:      4,
			ExposureMin: cfg.ExposureMin,
			ExposureMax: cfg.ExposureMax,
			CanAbort:    true,
			CanStop:     true,
		},
	}
}

func (s *Simulator) Info() SensorInfo {
	return s.info
}

func (s *Simulator) StartExposure(roi ROI, duration time.Duration, format ImageType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exposing {
		return errors.New("exposure already in progress")
	}
	s.exposing = true
	s.start = s.now()
	s.duration = duration
	s.roi = roi
	s.format = format
	s.image = nil
	return nil
}

// FailNextExposure makes the next exposure report a failure.
func (s *Simulator) FailNextExposure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *Simulator) CheckExposure() (ExposureStatus, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exposing {
		if s.image != nil {
			return ExposureSuccess, 100, nil
		}
		return ExposureIdle, 0, nil
	}

	elapsed := s.now().Sub(s.start)
	if elapsed < s.duration {
		return ExposureWorking, 100 * float64(elapsed) / float64(s.duration), nil
	}

	s.exposing = false
	if s.failNext {
		s.failNext = false
		return ExposureFailed, 100, nil
	}
	s.image = s.render(s.duration)
	return ExposureSuccess, 100, nil
}

func (s *Simulator) ReadImage() (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.image == nil {
		return nil, errNoImage
	}
	img := s.image
	s.image = nil
	return img, nil
}

func (s *Simulator) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exposing = false
	s.image = nil
	return nil
}

// Stop ends the exposure early and keeps the partial frame.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exposing {
		return nil
	}
	s.exposing = false
	s.image = s.render(min(s.now().Sub(s.start), s.duration))
	return nil
}

func (s *Simulator) Temperature() (float64, error) {
	return s.cfg.Temperature, nil
}

// SceneValue is the 16-bit signal of sensor pixel (x, y) after d.
func (s *Simulator) SceneValue(x, y int, d time.Duration) float64 {
	w, h := s.cfg.Width, s.cfg.Height
	rate := s.cfg.PeakRate * float64(y*w+x+1) / float64(w*h)
	return math.Min(rate*d.Seconds(), 65535)
}

// render produces the frame for the current subframe. Call with the lock held.
func (s *Simulator) render(d time.Duration) *Image {
	roi := s.roi
	binX, binY := max(roi.BinX, 1), max(roi.BinY, 1)

	img := &Image{Type: s.format, Width: roi.NumX, Height: roi.NumY, MaxValue: 255}
	n := roi.NumX * roi.NumY
	switch s.format {
	case ImageRaw16:
		img.MaxValue = s.info.MaxADU()
		img.Pix16 = make([]uint16, n)
	case ImageRGB24:
		img.Pix8 = make([]uint8, n*3)
	default:
		img.Pix8 = make([]uint8, n)
	}

	maxADU := float64(s.info.MaxADU())
	for y := 0; y < roi.NumY; y++ {
		for x := 0; x < roi.NumX; x++ {
			sx := min((roi.StartX+x)*binX, s.cfg.Width-1)
			sy := min((roi.StartY+y)*binY, s.cfg.Height-1)
			v := s.SceneValue(sx, sy, d) / 65535
			i := y*roi.NumX + x

			switch s.format {
			case ImageRaw16:
				img.Pix16[i] = uint16(math.Floor(v * maxADU))
			case ImageRGB24:
				b := uint8(math.Floor(v * 255))
				img.Pix8[i*3], img.Pix8[i*3+1], img.Pix8[i*3+2] = b, b, b
			default:
				img.Pix8[i] = uint8(math.Floor(v * 255))
			}
		}
	}
	return img
}
