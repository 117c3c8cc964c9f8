package apimodel

type StatusResponse struct {
	BatteryLevel int  `json:"battery_level"`
	UsbConnected bool `json:"usb_connected"`
	Animating    bool `json:"animating"`
	Frame        int  `json:"frame"`
}
