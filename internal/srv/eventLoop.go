package srv

import (
	"fmt"

	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/sirupsen/logrus"
)

func (s *ServerApp) eventLoop() {
	for loop := true; loop; {
		select {
		case ev := <-s.powerDevice.EventChannel():
			logrus.Debugf("Receive power supply event: %+v", ev.Data)
			s.eventBus.Raise(event.Event{Kind: event.KindOf(ev.Data), Data: ev.Data})
		case ev := <-s.apiEventChannel():
			ev.Result <- s.onApiEvent(ev)
		case ev := <-s.buttonsDevice.EventChannel():
			logrus.Debugf("Receive button event: %d, %d, %d", ev.ButtonId, ev.ButtonEventType, ev.PressStepCount)
			switch ev.ButtonId {
			case event.DISPLAY_BUTTON:
				if ev.ButtonEventType == event.RELEASE_EVENT_TYPE && ev.PressStepCount < 5 {
					logrus.Debugf("Switch display on/off")
					s.switchDisplay()
				}
			}
		case <-s.eventLoopAskDone:
			loop = false
		}
	}
	s.eventLoopDone <- true
}

// apiEventChannel is nil when the api is disabled, so the loop never
// selects it.
func (s *ServerApp) apiEventChannel() chan event.ApiEvent {
	if s.apiDevice == nil {
		return nil
	}
	return s.apiDevice.EventChannel()
}

// onApiEvent never refreshes the status itself: simulated power changes
// come back through the power supply device.
func (s *ServerApp) onApiEvent(ev event.ApiEvent) error {
	switch data := ev.Data.(type) {
	case event.ApiEventDisplaySwitchData:
		s.switchDisplay()
		return nil
	case event.ApiEventSimulateBatteryData:
		logrus.Infof("Simulate battery level %d%%", data.Level)
		return s.powerDevice.SimulateBattery(data.Level)
	case event.ApiEventSimulateUsbData:
		logrus.Infof("Simulate usb power %t", data.Powered)
		return s.powerDevice.SimulateUsb(data.Powered)
	}
	return fmt.Errorf("unexpected api event %T", ev.Data)
}

func (s *ServerApp) switchDisplay() {
	on := s.displayDevice.Switch()
	s.eventBus.Raise(event.Event{Kind: event.DISPLAY_STATE_CHANGED, Data: event.DisplayStateChangedData{On: on}})
}
