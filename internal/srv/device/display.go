package device

import (
	"image"
	"sync"

	"github.com/jypelle/mkbdstatus/internal/srv/config"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// simulator stands in for the oled panel when running without hardware.
type simulator interface {
	start() error
	invalidate(img image.Image, on bool)
	close()
}

type Display struct {
	oledLock    sync.Mutex
	oledDisplay *ssd1306.Dev
	i2cBus      i2c.BusCloser
	contrast    uint8

	lock           sync.RWMutex
	on             bool
	simulationMode bool
	simulationKind string
	simulator      simulator
	logFilename    string
	lastImg        image.Image

	askDone chan bool
	askImg  chan image.Image
	done    chan bool
}

// NewDisplay opens the oled panel, or a simulation when simulationMode is
// set. The terminal simulation writes the logs to logFilename.
func NewDisplay(param config.DisplayParam, simulationMode bool, logFilename string) *Display {
	if !simulationMode {
		if _, err := host.Init(); err != nil {
			logrus.Fatalf("Unable to initialize periph host: %v\n", err)
		}
	}

	device := Display{
		contrast:       param.Contrast,
		simulationMode: simulationMode,
		simulationKind: param.Simulation,
		logFilename:    logFilename,
		askDone:        make(chan bool),
		askImg:         make(chan image.Image, 1),
		done:           make(chan bool),
	}

	return &device
}

func (d *Display) Start() {
	logrus.Infof("Start display device")

	d.on = true

	if d.simulationMode {
		d.startSimulation()
		return
	}

	var err error
	// Open a handle to the first available I²C bus:
	d.i2cBus, err = i2creg.Open("")
	if err != nil {
		logrus.Fatalf("Unable to open i2c bus: %v\n", err)
	}

	// Open a handle to a ssd1306 connected on the I²C bus:
	d.oledDisplay, err = ssd1306.NewI2C(d.i2cBus, &ssd1306.DefaultOpts)
	if err != nil {
		logrus.Fatalf("Unable to initialize oled display: %v\n", err)
	}

	d.oledDisplay.SetContrast(d.contrast)

	go func() {
		for loop := true; loop; {
			select {
			case <-d.askDone:
				loop = false
			case newImg := <-d.askImg:
				d.oledLock.Lock()
				if err := d.oledDisplay.Draw(d.oledDisplay.Bounds(), newImg, image.Point{}); err != nil {
					logrus.Warnf("Unable to draw on oled display: %v", err)
				}
				d.oledLock.Unlock()
			}
		}
		d.oledLock.Lock()
		d.i2cBus.Close()
		d.oledLock.Unlock()
		d.done <- true
	}()
}

func (d *Display) startSimulation() {
	if d.simulationKind == config.WINDOW_SIMULATION {
		window, err := newWindowSimulator(d)
		if err == nil {
			err = window.start()
		}
		if err == nil {
			d.simulator = window
			return
		}
		logrus.Warnf("Unable to open simulation window, falling back to terminal: %v", err)
	}

	terminal, err := newTerminalSimulator(d, nil, d.logFilename)
	if err == nil {
		err = terminal.start()
	}
	if err != nil {
		logrus.Fatalf("Unable to start terminal simulation: %v\n", err)
	}
	d.simulator = terminal
}

func (d *Display) Stop() {
	logrus.Infof("Stop display device")

	if d.simulationMode {
		if d.simulator != nil {
			d.simulator.close()
		}
	} else {
		d.askDone <- true
		<-d.done
	}
}

func (d *Display) SetOff() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.setOff()
}

func (d *Display) setOff() {
	d.on = false
	if d.simulationMode {
		d.invalidateSimulation()
	} else {
		d.oledLock.Lock()
		d.oledDisplay.Halt()
		d.oledLock.Unlock()
	}
}

func (d *Display) SetOn() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.setOn()
}

func (d *Display) setOn() {
	d.on = true
	if d.simulationMode {
		d.invalidateSimulation()
	} else {
		d.oledLock.Lock()
		d.oledDisplay.SetContrast(d.contrast) // Hack to force display on (calling Draw() is not enough)
		d.oledLock.Unlock()
		if d.lastImg != nil {
			d.send(d.lastImg)
		}
	}
}

func (d *Display) Switch() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.on {
		d.setOff()
	} else {
		d.setOn()
	}

	return d.on
}

func (d *Display) IsOn() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.on
}

// ShowImage never blocks: a frame still waiting for the panel is replaced.
func (d *Display) ShowImage(img image.Image) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.lastImg = img
	if d.on {
		if d.simulationMode {
			d.invalidateSimulation()
		} else {
			d.send(img)
		}
	}
}

// LastImage returns the frame displayed (or to be displayed once switched on).
func (d *Display) LastImage() (image.Image, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.lastImg, d.on
}

func (d *Display) send(img image.Image) {
	select {
	case <-d.askImg:
	default:
	}
	d.askImg <- img
}

func (d *Display) invalidateSimulation() {
	if d.simulator != nil {
		d.simulator.invalidate(d.lastImg, d.on)
	}
}
