package bus

import (
	"sync"
	"testing"

	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaiseFiltersByKind(t *testing.T) {
	b := NewEventBus()

	var usb, all []event.Kind
	b.Subscribe(func(ev event.Event) { usb = append(usb, ev.Kind) }, event.USB_CONN_STATE_CHANGED)
	b.Subscribe(func(ev event.Event) { all = append(all, ev.Kind) })

	b.Raise(event.Event{Kind: event.USB_CONN_STATE_CHANGED, Data: event.UsbConnStateChangedData{Powered: true}})
	b.Raise(event.Event{Kind: event.BATTERY_STATE_CHANGED, Data: event.BatteryStateChangedData{StateOfCharge: 42}})

	assert.Equal(t, []event.Kind{event.USB_CONN_STATE_CHANGED}, usb)
	assert.Equal(t, []event.Kind{event.USB_CONN_STATE_CHANGED, event.BATTERY_STATE_CHANGED}, all)
	assert.Equal(t, 2, b.SubscriberCount(event.USB_CONN_STATE_CHANGED))
	assert.Equal(t, 1, b.SubscriberCount(event.BATTERY_STATE_CHANGED))
}

func TestRaiseIsSynchronous(t *testing.T) {
	b := NewEventBus()
	payload := &event.BatteryStateChangedData{StateOfCharge: 10}
	seen := 0

	b.Subscribe(func(ev event.Event) {
		seen = ev.Data.(*event.BatteryStateChangedData).StateOfCharge
	}, event.BATTERY_STATE_CHANGED)

	b.Raise(event.Event{Kind: event.BATTERY_STATE_CHANGED, Data: payload})
	payload.StateOfCharge = 99

	assert.Equal(t, 10, seen)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewEventBus()
	count := 0
	sub := b.Subscribe(func(ev event.Event) { count++ }, event.USB_CONN_STATE_CHANGED)
	require.NotEmpty(t, sub.ID())

	b.Raise(event.Event{Kind: event.USB_CONN_STATE_CHANGED})
	sub.Cancel()
	sub.Cancel()
	b.Raise(event.Event{Kind: event.USB_CONN_STATE_CHANGED})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.SubscriberCount(event.USB_CONN_STATE_CHANGED))
}

func TestConcurrentRaiseAndSubscribe(t *testing.T) {
	b := NewEventBus()
	var lock sync.Mutex
	count := 0
	b.Subscribe(func(ev event.Event) {
		lock.Lock()
		count++
		lock.Unlock()
	}, event.BATTERY_STATE_CHANGED)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Raise(event.Event{Kind: event.BATTERY_STATE_CHANGED})
			}
		}()
		go func() {
			defer wg.Done()
			sub := b.Subscribe(func(ev event.Event) {}, event.BATTERY_STATE_CHANGED)
			sub.Cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, count)
}
