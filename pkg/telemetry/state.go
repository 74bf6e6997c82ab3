package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alpacapi/pkg/alpaca"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StateMessage is the payload published for a device.
type StateMessage struct {
	Timestamp time.Time      `json:"timestamp"`
	UniqueID  string         `json:"uniqueId"`
	Connected bool           `json:"connected"`
	State     map[string]any `json:"state"`
	Commands  uint64         `json:"commands"`
	Errors    uint64         `json:"errors"`
}

// StateTopic is the topic a device publishes its state on.
func StateTopic(dev alpaca.Device) string {
	info := dev.DeviceInfo()
	return fmt.Sprintf("%s/%d/state", strings.ToLower(info.Type.String()), info.Number)
}

// NewStateMessage snapshots the state of dev.
func NewStateMessage(dev alpaca.Device, now time.Time) StateMessage {
	msg := StateMessage{
		Timestamp: now.UTC(),
		UniqueID:  dev.DeviceInfo().UniqueID,
		Connected: dev.Connected(),
		State:     make(map[string]any),
	}
	if msg.Connected {
		for _, p := range dev.State() {
			msg.State[p.Name] = p.Value
		}
	}
	msg.Commands, msg.Errors = dev.Stats().Totals()
	return msg
}

// StateTask returns a runtime task publishing the state of dev.
func StateTask(pub Publisher, dev alpaca.Device) alpaca.TaskFunc {
	topic := StateTopic(dev)
	return func(ctx context.Context, now time.Time) error {
		payload, err := json.Marshal(NewStateMessage(dev, now))
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		return pub.Publish(topic, payload)
	}
}
