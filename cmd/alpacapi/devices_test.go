package main

import (
	"path/filepath"
	"testing"
	"time"

	"alpacapi/pkg/alpaca"
	"alpacapi/pkg/config"
	"alpacapi/pkg/drivers/camera"
	"alpacapi/pkg/drivers/rotator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *alpaca.Store {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "alpaca.db"), 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := alpaca.NewStore(db)
	require.NoError(t, err)
	return store
}

func TestNewCameraDriver(t *testing.T) {
	dev, err := newDriver(config.DeviceConfig{
		Type:         "camera",
		Number:       2,
		Name:         "Guide camera",
		Width:        320,
		Height:       240,
		BitDepth:     12,
		AutoExposure: true,
		AdjustStep:   20 * time.Microsecond,
		Exposure:     250 * time.Millisecond,
	}, newTestStore(t))
	require.NoError(t, err)

	cam, ok := dev.(*camera.Driver)
	require.True(t, ok)
	assert.Equal(t, "Guide camera", cam.DeviceInfo().Name)
	assert.Equal(t, 2, cam.DeviceInfo().Number)
	assert.Equal(t, 4095, cam.Info().MaxADU())
	assert.Equal(t, 20*time.Microsecond, cam.Limits().Step)

	p := cam.Properties()
	assert.Equal(t, 250*time.Millisecond, p.Exposure)
	assert.True(t, p.AutoExposure)
	assert.Equal(t, 320, p.ROI.NumX)
}

func TestNewCameraDriverDefaults(t *testing.T) {
	dev, err := newDriver(config.DeviceConfig{Type: "camera"}, newTestStore(t))
	require.NoError(t, err)

	cam := dev.(*camera.Driver)
	assert.Equal(t, 5*time.Microsecond, cam.Limits().Step)
	assert.Equal(t, 100*time.Millisecond, cam.Properties().Exposure)
	assert.Equal(t, 65535, cam.Info().MaxADU())
}

func TestNewRotatorDriver(t *testing.T) {
	dev, err := newDriver(config.DeviceConfig{Type: "rotator", StepsPerRev: 2000, CanReverse: true}, newTestStore(t))
	require.NoError(t, err)

	rot, ok := dev.(*rotator.Driver)
	require.True(t, ok)
	assert.Equal(t, 0.18, rot.Properties().StepSize)
	assert.True(t, rot.Properties().CanReverse)
}

func TestNewDriverUnsupported(t *testing.T) {
	_, err := newDriver(config.DeviceConfig{Type: "dome"}, newTestStore(t))
	assert.Error(t, err)

	_, err = newDriver(config.DeviceConfig{Type: "toaster"}, newTestStore(t))
	assert.Error(t, err)
}
