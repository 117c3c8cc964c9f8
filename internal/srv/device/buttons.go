package device

import (
	"sync"
	"time"

	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const pressStep = 160 * time.Millisecond

type Button struct {
	buttonId       event.ButtonId
	pin            gpio.PinIO
	isPressed      bool
	pressStepCount int64
	lastChange     time.Time
}

// NewButton sets pin as a pulled up input: the button is pressed while the
// pin reads low.
func NewButton(buttonId event.ButtonId, pin gpio.PinIO) (*Button, error) {
	button := Button{buttonId: buttonId, pin: pin}

	if err := button.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}
	return &button, nil
}

func (b *Button) Refresh(buttonEventChannel chan event.ButtonEvent) {
	b.refresh(buttonEventChannel, time.Now())
}

// refresh sends a press event every pressStep while held, and a release
// event carrying the number of steps.
func (b *Button) refresh(buttonEventChannel chan event.ButtonEvent, now time.Time) {
	wasPressed := b.isPressed
	b.isPressed = bool(!b.pin.Read())

	if !b.isPressed && wasPressed {
		b.lastChange = now
		buttonEventChannel <- event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.RELEASE_EVENT_TYPE, PressStepCount: b.pressStepCount}
		b.pressStepCount = 0
	} else if b.isPressed && b.lastChange.Add(pressStep).Before(now) {
		b.lastChange = now
		b.pressStepCount++
		buttonEventChannel <- event.ButtonEvent{ButtonId: b.buttonId, ButtonEventType: event.PRESS_EVENT_TYPE, PressStepCount: b.pressStepCount}
	}
}

type Buttons struct {
	lock         sync.RWMutex
	eventChannel chan event.ButtonEvent
	simulation   bool
	displayPin   string

	buttons []*Button

	checkTicker *time.Ticker

	askDone chan bool
	done    chan bool
}

func NewButtons(displayPin string, simulation bool) *Buttons {
	if !simulation && displayPin != "" {
		if _, err := host.Init(); err != nil {
			logrus.Fatalf("Unable to initialize periph host: %v\n", err)
		}
	}

	device := Buttons{
		eventChannel: make(chan event.ButtonEvent),
		simulation:   simulation,
		displayPin:   displayPin,
		askDone:      make(chan bool),
		done:         make(chan bool),
	}

	return &device
}

func (d *Buttons) Start() {
	logrus.Infof("Start buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.simulation && d.displayPin != "" {
		pin := gpioreg.ByName(d.displayPin)
		if pin == nil {
			logrus.Fatalf("Failed to find %s button", d.displayPin)
		}
		button, err := NewButton(event.DISPLAY_BUTTON, pin)
		if err != nil {
			logrus.Fatalf("Failed to setup %s button: %v", d.displayPin, err)
		}
		d.buttons = append(d.buttons, button)
	}

	// Start periodic check
	d.checkTicker = time.NewTicker(5 * time.Millisecond)
	go func() {
		for loop := true; loop; {
			select {
			case <-d.checkTicker.C:
				for _, button := range d.buttons {
					button.Refresh(d.eventChannel)
				}
			case <-d.askDone:
				loop = false
			}
		}
		d.done <- true
	}()
}

func (d *Buttons) StopSendingEvent() {
	logrus.Infof("Stop buttons device")

	d.lock.Lock()
	defer d.lock.Unlock()

	d.checkTicker.Stop()
	d.askDone <- true
	<-d.done
}

func (d *Buttons) EventChannel() chan event.ButtonEvent {
	return d.eventChannel
}
