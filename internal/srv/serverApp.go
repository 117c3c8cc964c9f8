package srv

import (
	"os"

	"github.com/jypelle/mkbdstatus/internal/srv/bus"
	"github.com/jypelle/mkbdstatus/internal/srv/config"
	"github.com/jypelle/mkbdstatus/internal/srv/device"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/jypelle/mkbdstatus/internal/srv/status"
	"github.com/jypelle/mkbdstatus/internal/version"
	"github.com/sirupsen/logrus"
)

type ServerApp struct {
	*config.ServerConfig
	displayDevice *device.Display
	powerDevice   *device.PowerSupply
	buttonsDevice *device.Buttons
	apiDevice     *device.Api

	eventBus     *bus.EventBus
	logListener  *bus.Subscription
	statusCore   *status.Core
	statusScreen *status.StatusScreen

	eventLoopAskDone chan bool
	eventLoopDone    chan bool
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool) *ServerApp {

	logrus.Debugf("Creation of mkbdstatus server %s ...", version.AppVersion.String())

	app := &ServerApp{
		eventLoopAskDone: make(chan bool),
		eventLoopDone:    make(chan bool),
		eventBus:         bus.NewEventBus(),
		ServerConfig:     config.NewServerConfig(configDir, debugMode, simulationMode),
	}

	app.displayDevice = device.NewDisplay(app.Display, app.SimulationMode, app.GetCompleteLogFilename())
	app.powerDevice = device.NewPowerSupply(app.Power, app.SimulationMode)
	app.buttonsDevice = device.NewButtons(app.Display.ButtonPin, app.SimulationMode)

	var err error
	app.statusCore, err = status.NewCore(app.powerDevice, app.powerDevice, status.Options{
		Policy:            app.Status.Policy,
		AnimationDuration: app.Animation.Duration(),
		Greeting:          app.Status.Greeting,
		GreetingHold:      app.Status.GreetingHold(),
	})
	if err != nil {
		logrus.Fatalf("Unable to create status display: %v\n", err)
	}

	if app.ApiParam.Enabled {
		app.apiDevice = device.NewApi(app.ServerConfig, app.statusCore)
	}

	logrus.Debugln("Server created")

	return app
}

func (s *ServerApp) Start() {
	logrus.Printf("Starting mkbdstatus server ...")

	// Trace every bus event
	s.logListener = s.eventBus.Subscribe(func(ev event.Event) {
		logrus.Debugf("Bus event %s: %+v", ev.Kind, ev.Data)
	})

	logrus.Printf("Starting devices ...")

	// Start display device
	s.displayDevice.Start()

	// Display status screen
	s.statusCore.Listen(s.eventBus)
	s.statusScreen = s.statusCore.BuildStatusScreen(s.displayDevice)

	// Start event loop
	go s.eventLoop()

	// Start power supply device
	s.powerDevice.Start()

	// Start buttons device
	s.buttonsDevice.Start()

	// Start api device
	if s.apiDevice != nil {
		s.apiDevice.Start()
	}
}

func (s *ServerApp) Stop() {
	logrus.Printf("Stopping mkbdstatus server ...")

	// Stop api
	if s.apiDevice != nil {
		s.apiDevice.StopSendingEvent()
	}

	// Stop buttons device
	s.buttonsDevice.StopSendingEvent()

	// Stop power supply device
	s.powerDevice.StopSendingEvent()

	// Stop event loop
	logrus.Infof("Stop event loop")
	s.eventLoopAskDone <- true
	<-s.eventLoopDone

	// Stop status display
	s.statusScreen.Close()
	s.statusCore.Close()
	s.logListener.Cancel()

	// Stop display device
	s.displayDevice.Stop()

	logrus.Printf("Server stopped")

	os.Exit(0)
}
