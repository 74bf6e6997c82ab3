package alpaca

import (
	"sync"
	"time"
)

// TemperatureLogEntries is one slot per minute of the day.
const TemperatureLogEntries = 24 * 60

// TemperatureLog keeps the last reading taken in each minute of the day.
type TemperatureLog struct {
	mu          sync.RWMutex
	description string
	entries     [TemperatureLogEntries]float64
}

func NewTemperatureLog(description string) *TemperatureLog {
	return &TemperatureLog{description: description}
}

func (l *TemperatureLog) SetDescription(description string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.description = description
}

// AddEntry stores temp in the slot of the minute of now.
func (l *TemperatureLog) AddEntry(now time.Time, temp float64) {
	idx := now.Hour()*60 + now.Minute()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[idx] = temp
}

// Snapshot returns the description and a copy of all entries.
func (l *TemperatureLog) Snapshot() (string, []float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]float64, TemperatureLogEntries)
	copy(out, l.entries[:])
	return l.description, out
}
