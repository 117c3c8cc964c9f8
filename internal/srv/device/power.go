package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jypelle/mkbdstatus/internal/srv/config"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/sirupsen/logrus"
)

var ErrNotSimulated = errors.New("power supply is not simulated")

var batteryCapacityCandidates = []string{
	"/sys/class/power_supply/bq27441-0/capacity",
	"/sys/class/power_supply/battery/capacity",
	"/sys/class/power_supply/BAT0/capacity",
	"/sys/class/power_supply/axp20x-battery/capacity",
}

var usbOnlineCandidates = []string{
	"/sys/class/power_supply/usb/online",
	"/sys/class/power_supply/axp20x-usb/online",
	"/sys/class/power_supply/AC/online",
}

// PowerSupply reads the fuel gauge and the usb power line from sysfs-like
// files and reports changes on its event channel.
type PowerSupply struct {
	lock         sync.Mutex
	eventChannel chan event.PowerEvent

	batteryCapacityPath string
	usbOnlinePath       string
	pollInterval        time.Duration
	simulation          bool

	lastLevel   int
	lastPowered bool
	known       bool

	watcher    *fsnotify.Watcher
	pollTicker *time.Ticker

	askDone chan bool
	done    chan bool
}

func NewPowerSupply(param config.PowerParam, simulation bool) *PowerSupply {
	device := PowerSupply{
		eventChannel:        make(chan event.PowerEvent),
		batteryCapacityPath: param.BatteryCapacityPath,
		usbOnlinePath:       param.UsbOnlinePath,
		pollInterval:        param.PollInterval(),
		simulation:          simulation,
		askDone:             make(chan bool),
		done:                make(chan bool),
	}

	if device.batteryCapacityPath == "" {
		device.batteryCapacityPath = firstExisting(batteryCapacityCandidates)
	}
	if device.usbOnlinePath == "" {
		device.usbOnlinePath = firstExisting(usbOnlineCandidates)
	}

	return &device
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (d *PowerSupply) BatteryLevel() (int, error) {
	raw, err := readPowerFile(d.batteryCapacityPath)
	if err != nil {
		return 0, fmt.Errorf("unable to read battery capacity: %w", err)
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unable to parse battery capacity %q: %w", raw, err)
	}
	return level, nil
}

func (d *PowerSupply) UsbPowered() (bool, error) {
	raw, err := readPowerFile(d.usbOnlinePath)
	if err != nil {
		return false, fmt.Errorf("unable to read usb power state: %w", err)
	}
	switch raw {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("unable to parse usb power state %q", raw)
}

func readPowerFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("no power supply file found")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (d *PowerSupply) Start() {
	logrus.Infof("Start power supply device")
	d.lock.Lock()
	defer d.lock.Unlock()

	d.lastLevel, d.lastPowered, d.known = d.read()

	// sysfs attributes do not raise inotify events, plain files do
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Warnf("Unable to watch power supply files, polling only: %v", err)
	} else {
		d.watcher = watcher
		for _, dir := range d.watchedFolders() {
			if err := watcher.Add(dir); err != nil {
				logrus.Warnf("Unable to watch %s: %v", dir, err)
			}
		}
	}

	d.pollTicker = time.NewTicker(d.pollInterval)

	go func() {
		var watchEvents chan fsnotify.Event
		var watchErrors chan error
		if d.watcher != nil {
			watchEvents = d.watcher.Events
			watchErrors = d.watcher.Errors
		}

		for loop := true; loop; {
			select {
			case <-d.pollTicker.C:
				d.refresh()
			case ev, ok := <-watchEvents:
				if !ok {
					watchEvents = nil
					continue
				}
				if d.isWatched(ev.Name) && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					logrus.Debugf("Power supply file changed: %s", ev.Name)
					d.refresh()
				}
			case err, ok := <-watchErrors:
				if !ok {
					watchErrors = nil
					continue
				}
				logrus.Warnf("Power supply watcher error: %v", err)
			case <-d.askDone:
				loop = false
			}
		}
		d.done <- true
	}()
}

func (d *PowerSupply) StopSendingEvent() {
	logrus.Infof("Stop power supply device")
	d.lock.Lock()
	d.pollTicker.Stop()
	if d.watcher != nil {
		d.watcher.Close()
	}
	d.lock.Unlock()

	d.askDone <- true
	<-d.done
}

func (d *PowerSupply) EventChannel() chan event.PowerEvent {
	return d.eventChannel
}

func (d *PowerSupply) IsSimulated() bool {
	return d.simulation
}

func (d *PowerSupply) SimulateBattery(level int) error {
	if !d.simulation {
		return ErrNotSimulated
	}
	if level < 0 || level > 100 {
		return fmt.Errorf("battery level %d out of range", level)
	}
	return os.WriteFile(d.batteryCapacityPath, []byte(strconv.Itoa(level)+"\n"), 0660)
}

func (d *PowerSupply) SimulateUsb(powered bool) error {
	if !d.simulation {
		return ErrNotSimulated
	}
	content := "0\n"
	if powered {
		content = "1\n"
	}
	return os.WriteFile(d.usbOnlinePath, []byte(content), 0660)
}

func (d *PowerSupply) read() (int, bool, bool) {
	level, err := d.BatteryLevel()
	if err != nil {
		logrus.Debugf("%v", err)
		return 0, false, false
	}
	powered, err := d.UsbPowered()
	if err != nil {
		logrus.Debugf("%v", err)
		return 0, false, false
	}
	return level, powered, true
}

// refresh compares the files with the last reading and sends one event per
// changed value. Events are sent without holding the lock.
func (d *PowerSupply) refresh() {
	d.lock.Lock()
	level, powered, ok := d.read()
	var events []event.PowerEvent
	if ok {
		if !d.known || level != d.lastLevel {
			events = append(events, event.PowerEvent{Data: event.BatteryStateChangedData{StateOfCharge: level}})
		}
		if !d.known || powered != d.lastPowered {
			events = append(events, event.PowerEvent{Data: event.UsbConnStateChangedData{Powered: powered}})
		}
		d.lastLevel, d.lastPowered, d.known = level, powered, true
	}
	d.lock.Unlock()

	for _, ev := range events {
		d.eventChannel <- ev
	}
}

func (d *PowerSupply) watchedFolders() []string {
	var folders []string
	seen := map[string]bool{}
	for _, path := range []string{d.batteryCapacityPath, d.usbOnlinePath} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			folders = append(folders, dir)
		}
	}
	return folders
}

func (d *PowerSupply) isWatched(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Clean(d.batteryCapacityPath) || name == filepath.Clean(d.usbOnlinePath)
}
