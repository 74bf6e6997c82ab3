package alpaca

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Base carries the common properties shared by every driver. Device
// drivers embed it and add their own command table and state.
type Base struct {
	mu         sync.RWMutex
	info       DeviceInfo
	driver     DriverInfo
	connected  bool
	connecting bool

	stats   *CommandStats
	tempLog *TemperatureLog
	logger  log.FieldLogger
}

func NewBase(info DeviceInfo, driver DriverInfo, logger log.FieldLogger) *Base {
	if info.UniqueID == "" {
		info.UniqueID = UniqueID(info.Type, info.Number)
	}
	return &Base{
		info:    info,
		driver:  driver,
		stats:   NewCommandStats(),
		tempLog: NewTemperatureLog("unknown"),
		logger:  logger,
	}
}

func (b *Base) DeviceInfo() DeviceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

func (b *Base) DriverInfo() DriverInfo {
	return b.driver
}

// SetDescription changes the description returned by the description command.
func (b *Base) SetDescription(description string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info.Description = description
}

func (b *Base) Stats() *CommandStats {
	return b.stats
}

func (b *Base) TemperatureLog() *TemperatureLog {
	return b.tempLog
}

func (b *Base) Logger() log.FieldLogger {
	return b.logger
}

func (b *Base) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Base) Connecting() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connecting
}

func (b *Base) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}
	b.connected = true
	b.logger.Infof("%s connected", b.info.Name)
	return nil
}

func (b *Base) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil
	}
	b.connected = false
	b.logger.Infof("%s disconnected", b.info.Name)
	return nil
}

// RequireConnected returns ErrNotConnected while the device is disconnected.
func (b *Base) RequireConnected() error {
	if !b.Connected() {
		return ErrNotConnected
	}
	return nil
}
