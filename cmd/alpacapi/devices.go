package main

import (
	"fmt"
	"strings"

	"alpacapi/pkg/alpaca"
	"alpacapi/pkg/config"
	"alpacapi/pkg/drivers/camera"
	"alpacapi/pkg/drivers/rotator"

	log "github.com/sirupsen/logrus"
)

// driver is a device with its own runtime loop.
type driver interface {
	alpaca.Device
	Runtime() *alpaca.Runtime
}

func newDriver(dc config.DeviceConfig, store *alpaca.Store) (driver, error) {
	t, err := dc.DeviceType()
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{
		"device": strings.ToLower(t.String()),
		"number": dc.Number,
	})

	switch t {
	case alpaca.DeviceRotator:
		mech := rotator.NewSimulator(dc.StepsPerRev, dc.StepRate)
		return rotator.NewDriver(dc.Number, rotator.Config{
			Name:        dc.Name,
			Description: dc.Description,
			CanReverse:  dc.CanReverse,
		}, mech, store, logger)

	case alpaca.DeviceCamera:
		sensor := camera.NewSimulator(camera.SimulatorConfig{
			Width:       dc.Width,
			Height:      dc.Height,
			BitDepth:    dc.BitDepth,
			Color:       dc.Color,
			PeakRate:    dc.PeakRate,
			ExposureMin: dc.ExposureMin,
			ExposureMax: dc.ExposureMax,
			Temperature: dc.Temperature,
		})
		return camera.NewDriver(dc.Number, camera.Config{
			Name:         dc.Name,
			Description:  dc.Description,
			AutoExposure: dc.AutoExposure,
			AdjustStep:   dc.AdjustStep,
			Exposure:     dc.Exposure,
		}, sensor, logger), nil
	}
	return nil, fmt.Errorf("no driver for %s", t)
}
