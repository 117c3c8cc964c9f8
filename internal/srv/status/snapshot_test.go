package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReadsEveryCall(t *testing.T) {
	power := &fakePower{level: 42}
	b := NewSnapshotBuilder(power, power)

	assert.Equal(t, StatusState{BatteryLevel: 42}, b.Build())

	power.set(41, true)
	assert.Equal(t, StatusState{BatteryLevel: 41, UsbConnected: true}, b.Build())
}

func TestBuildKeepsPreviousValueOnReadFailure(t *testing.T) {
	power := &fakePower{}
	b := NewSnapshotBuilder(power, power)

	power.fail(errRead)
	assert.Equal(t, StatusState{BatteryLevel: 100, UsbConnected: false}, b.Build())

	power.fail(nil)
	power.set(37, true)
	assert.Equal(t, StatusState{BatteryLevel: 37, UsbConnected: true}, b.Build())

	power.fail(errRead)
	power.set(5, false)
	assert.Equal(t, StatusState{BatteryLevel: 37, UsbConnected: true}, b.Build())
}

func TestBuildClampsLevel(t *testing.T) {
	power := &fakePower{level: 130}
	b := NewSnapshotBuilder(power, power)
	assert.Equal(t, 100, b.Build().BatteryLevel)

	power.set(-4, false)
	assert.Equal(t, 0, b.Build().BatteryLevel)
}

func TestBuildWithoutReaders(t *testing.T) {
	b := NewSnapshotBuilder(nil, nil)
	assert.Equal(t, StatusState{BatteryLevel: 100}, b.Build())
}
