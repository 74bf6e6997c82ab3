package alpaca

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupField is one input of a device setup form.
type SetupField struct {
	Name  string
	Label string
	Value string
}

// Setupper is implemented by devices with a setup page. SaveSetup receives
// the posted keyword/value pairs.
type Setupper interface {
	SetupFields() []SetupField
	SaveSetup(params Params) error
}

// SetupFormAction is the URL a device setup form posts to.
func SetupFormAction(t DeviceType, number int) string {
	return fmt.Sprintf("/setup/v1/%s/%d/save", strings.ToLower(t.String()), number)
}

func setupKey(t DeviceType, number int) string {
	return fmt.Sprintf("setup/%s/%d", strings.ToLower(t.String()), number)
}

// SaveSetup applies params to dev and persists them.
func SaveSetup(db *Store, dev Device, params Params) error {
	setup, ok := dev.(Setupper)
	if !ok {
		return fmt.Errorf("%s has no setup", dev.DeviceInfo().Name)
	}
	if err := setup.SaveSetup(params); err != nil {
		return err
	}

	info := dev.DeviceInfo()
	return db.Put(setupKey(info.Type, info.Number), params)
}

// RestoreSetup re-applies the persisted setup of every device.
func RestoreSetup(db *Store, devices []Device, logger log.FieldLogger) {
	for _, dev := range devices {
		setup, ok := dev.(Setupper)
		if !ok {
			continue
		}

		info := dev.DeviceInfo()
		var params Params
		if err := db.Get(setupKey(info.Type, info.Number), &params); err != nil {
			if !errors.Is(err, ErrKeyNotFound) {
				logger.Warnf("Error loading setup of %s: %v", info.Name, err)
			}
			continue
		}

		if err := setup.SaveSetup(params); err != nil {
			logger.Warnf("Error restoring setup of %s: %v", info.Name, err)
		}
	}
}
