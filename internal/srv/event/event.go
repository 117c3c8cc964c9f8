package event

// Kind identifies a state-change notification delivered by the event bus.
type Kind int

const (
	UNDEFINED_KIND Kind = iota
	USB_CONN_STATE_CHANGED
	BATTERY_STATE_CHANGED
	DISPLAY_STATE_CHANGED
)

var kindNames = map[Kind]string{
	UNDEFINED_KIND:         "undefined",
	USB_CONN_STATE_CHANGED: "usb_conn_state_changed",
	BATTERY_STATE_CHANGED:  "battery_state_changed",
	DISPLAY_STATE_CHANGED:  "display_state_changed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is what travels on the bus. Data holds one of the *Data payloads.
type Event struct {
	Kind Kind
	Data interface{}
}

// Power supply
type PowerEvent struct {
	Data interface{}
}

type UsbConnStateChangedData struct {
	Powered bool
}

type BatteryStateChangedData struct {
	StateOfCharge int
}

type DisplayStateChangedData struct {
	On bool
}

// Buttons
type ButtonId int

const (
	DISPLAY_BUTTON ButtonId = iota
)

type ButtonEventType int

const (
	PRESS_EVENT_TYPE ButtonEventType = iota
	RELEASE_EVENT_TYPE
)

type ButtonEvent struct {
	ButtonId        ButtonId
	ButtonEventType ButtonEventType
	PressStepCount  int64
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventDisplaySwitchData struct{}

type ApiEventSimulateBatteryData struct {
	Level int
}

type ApiEventSimulateUsbData struct {
	Powered bool
}

// KindOf returns the bus kind matching a device payload.
func KindOf(data interface{}) Kind {
	switch data.(type) {
	case UsbConnStateChangedData:
		return USB_CONN_STATE_CHANGED
	case BatteryStateChangedData:
		return BATTERY_STATE_CHANGED
	case DisplayStateChangedData:
		return DISPLAY_STATE_CHANGED
	}
	return UNDEFINED_KIND
}
