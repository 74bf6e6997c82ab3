package alpaca

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceCamera
	DeviceCoverCalibrator
	DeviceDome
	DeviceFilterWheel
	DeviceFocuser
	DeviceObservingConditions
	DeviceRotator
	DeviceSafetyMonitor
	DeviceSwitch
	DeviceTelescope
)

var deviceTypeNames = []string{
	DeviceUnknown:             "Unknown",
	DeviceCamera:              "Camera",
	DeviceCoverCalibrator:     "CoverCalibrator",
	DeviceDome:                "Dome",
	DeviceFilterWheel:         "FilterWheel",
	DeviceFocuser:             "Focuser",
	DeviceObservingConditions: "ObservingConditions",
	DeviceRotator:             "Rotator",
	DeviceSafetyMonitor:       "SafetyMonitor",
	DeviceSwitch:              "Switch",
	DeviceTelescope:           "Telescope",
}

func (t DeviceType) String() string {
	if t < 0 || int(t) >= len(deviceTypeNames) {
		return deviceTypeNames[DeviceUnknown]
	}
	return deviceTypeNames[t]
}

// MarshalText encodes the type by name, as expected in configureddevices.
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseDeviceType resolves a device type name case-insensitively.
func ParseDeviceType(name string) (DeviceType, error) {
	for i, n := range deviceTypeNames {
		if i != int(DeviceUnknown) && strings.EqualFold(n, name) {
			return DeviceType(i), nil
		}
	}
	return DeviceUnknown, fmt.Errorf("unknown device type: %q", name)
}

// UniqueID derives a stable identifier for a device from its type and number.
func UniqueID(t DeviceType, number int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "alpacapi-%s-%d", t, number)).String()
}

type DeviceInfo struct {
	Name        string     `json:"DeviceName"`
	Description string     `json:"-"`
	Type        DeviceType `json:"DeviceType"`
	Number      int        `json:"DeviceNumber"`
	UniqueID    string     `json:"UniqueID"`
}

type DriverInfo struct {
	Name             string
	Version          string
	InterfaceVersion int
}

type StateProperty struct {
	Name  string
	Value any
}

// Device is a driver instance served by the dispatcher. Commands from the
// device table go to HandleCommand; the shared common table is answered by
// the dispatcher using the remaining methods.
type Device interface {
	DeviceInfo() DeviceInfo
	DriverInfo() DriverInfo
	Commands() *CommandTable
	HandleCommand(ctx context.Context, cmd int, req *Request, resp *Response) error

	State() []StateProperty
	Stats() *CommandStats

	Connected() bool
	Connecting() bool
	Connect() error
	Disconnect() error
}

// ReadAller is implemented by devices answering the readall extension with
// their device specific properties.
type ReadAller interface {
	ReadAll() []StateProperty
}

// TemperatureLogger is implemented by devices that keep a temperature log.
type TemperatureLogger interface {
	TemperatureLog() *TemperatureLog
}

// Restarter is implemented by devices that support the restart extension.
type Restarter interface {
	Restart() error
}
