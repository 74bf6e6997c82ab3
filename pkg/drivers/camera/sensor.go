package camera

import (
	"fmt"
	"time"
)

// ExposureStatus is what the sensor reports about the exposure in progress.
type ExposureStatus int

const (
	ExposureIdle ExposureStatus = iota
	ExposureWorking
	ExposureSuccess
	ExposureFailed
)

func (s ExposureStatus) String() string {
	switch s {
	case ExposureIdle:
		return "Idle"
	case ExposureWorking:
		return "Working"
	case ExposureSuccess:
		return "Success"
	case ExposureFailed:
		return "Failed"
	}
	return fmt.Sprintf("ExposureStatus(%d)", int(s))
}

// SensorType follows the Alpaca SensorType values.
type SensorType int

const (
	SensorMonochrome SensorType = iota
	SensorColor
	SensorRGGB
)

// SensorInfo describes the fixed properties of a sensor.
type SensorInfo struct {
	Width       int
	Height      int
	BitDepth    int
	Type        SensorType
	PixelSizeUm float64
	MaxBin      int
	ExposureMin time.Duration
	ExposureMax time.Duration
	CanAbort    bool
	CanStop     bool
}

// MaxADU is the largest pixel value the sensor produces.
func (i SensorInfo) MaxADU() int {
	if i.BitDepth <= 0 || i.BitDepth > 16 {
		return 65535
	}
	return 1<<i.BitDepth - 1
}

// ROI is a subframe in binned pixels.
type ROI struct {
	StartX, StartY int
	NumX, NumY     int
	BinX, BinY     int
}

// Sensor is the camera hardware. StartExposure must return at once; the
// driver polls CheckExposure from its runtime loop.
type Sensor interface {
	Info() SensorInfo
	StartExposure(roi ROI, duration time.Duration, format ImageType) error
	CheckExposure() (ExposureStatus, float64, error)
	ReadImage() (*Image, error)
	Abort() error
	Stop() error
	Temperature() (float64, error)
}
