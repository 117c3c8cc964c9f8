package status

import (
	"github.com/sirupsen/logrus"
)

// StatusState is an immutable reading of the power state. It is rebuilt on
// every event and passed by value.
type StatusState struct {
	BatteryLevel int  `json:"battery_level"`
	UsbConnected bool `json:"usb_connected"`
}

// BatteryGauge returns the state of charge in percent.
type BatteryGauge interface {
	BatteryLevel() (int, error)
}

// UsbDetector reports whether the board is powered over USB.
type UsbDetector interface {
	UsbPowered() (bool, error)
}

// SnapshotBuilder queries both readers on every call. When a reader fails
// the previous value is kept, starting from a full battery on battery power.
// It is not safe for concurrent use; Core serializes calls.
type SnapshotBuilder struct {
	battery BatteryGauge
	usb     UsbDetector
	last    StatusState
}

func NewSnapshotBuilder(battery BatteryGauge, usb UsbDetector) *SnapshotBuilder {
	return &SnapshotBuilder{
		battery: battery,
		usb:     usb,
		last:    StatusState{BatteryLevel: 100},
	}
}

func (b *SnapshotBuilder) Build() StatusState {
	state := b.last

	if b.battery != nil {
		level, err := b.battery.BatteryLevel()
		if err != nil {
			logrus.Warnf("Unable to read battery level, keeping %d%%: %v", state.BatteryLevel, err)
		} else {
			state.BatteryLevel = clampLevel(level)
		}
	}

	if b.usb != nil {
		powered, err := b.usb.UsbPowered()
		if err != nil {
			logrus.Warnf("Unable to read usb power state, keeping %t: %v", state.UsbConnected, err)
		} else {
			state.UsbConnected = powered
		}
	}

	b.last = state
	return state
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
