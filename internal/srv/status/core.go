package status

import (
	"errors"
	"image"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jypelle/mkbdstatus/internal/images"
	"github.com/jypelle/mkbdstatus/internal/srv/bus"
	"github.com/jypelle/mkbdstatus/internal/srv/canvas"
	"github.com/jypelle/mkbdstatus/internal/srv/clock"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Policy            Policy
	AnimationDuration time.Duration

	// Greeting replaces the status for GreetingHold once the first screen
	// is built. Zero hold disables it.
	Greeting     string
	GreetingHold time.Duration

	// Frames defaults to images.BatteryFrames, TerminalFrame to
	// images.BatteryFullImage.
	Frames        []image.Image
	TerminalFrame image.Image

	Clock clock.Clock
}

// Core is the process-wide display state: the last snapshot, the animation
// engine, the widget registry and the screens. One mutex guards all of it;
// the bus listener and the animation timer both go through it.
type Core struct {
	lock sync.Mutex

	options   Options
	snapshots *SnapshotBuilder
	registry  *Registry
	engine    *Engine

	state   StatusState
	screens []*StatusScreen

	greetingTimer clock.Timer
	greetingDone  bool
	holding       bool

	subscription *bus.Subscription
}

func NewCore(battery BatteryGauge, usb UsbDetector, options Options) (*Core, error) {
	if _, err := NewRenderer(options.Policy); err != nil {
		return nil, err
	}
	if options.AnimationDuration <= 0 {
		return nil, errors.New("animation duration must be positive")
	}
	if options.Frames == nil {
		options.Frames = images.BatteryFrames
	}
	if len(options.Frames) == 0 {
		return nil, errors.New("frame table is empty")
	}
	if options.TerminalFrame == nil {
		options.TerminalFrame = images.BatteryFullImage
	}
	if options.Clock == nil {
		options.Clock = clock.Real{}
	}

	c := &Core{
		options:   options,
		snapshots: NewSnapshotBuilder(battery, usb),
	}
	c.registry = NewRegistry(&c.lock)
	c.engine = NewEngine(&c.lock, options.Clock, c.registry, options.Frames, options.TerminalFrame, options.AnimationDuration)
	c.engine.onPush = c.commit

	return c, nil
}

func (c *Core) Engine() *Engine {
	return c.engine
}

func (c *Core) Registry() *Registry {
	return c.registry
}

// Listen subscribes the core to power-source and battery-level changes.
func (c *Core) Listen(b *bus.EventBus) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.subscription != nil {
		c.subscription.Cancel()
	}
	c.subscription = b.Subscribe(c.OnEvent, event.USB_CONN_STATE_CHANGED, event.BATTERY_STATE_CHANGED)
}

// OnEvent runs the whole update before returning. The payload is ignored:
// the state is read again from the hardware. Render failures are logged.
func (c *Core) OnEvent(ev event.Event) {
	c.lock.Lock()
	defer c.lock.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("Status update for %s failed: %v\n%s", ev.Kind, rec, debug.Stack())
		}
	}()

	logrus.Debugf("Receive %s event", ev.Kind)
	if c.holding {
		c.endGreeting()
	}
	c.update()
}

// Status returns the last rendered snapshot and the animation state.
func (c *Core) Status() (StatusState, AnimationState) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state, c.engine.state
}

// BuildStatusScreen creates a screen bound to sink, registers its widgets
// and draws the current status on it so it never starts blank.
func (c *Core) BuildStatusScreen(sink canvas.Sink) *StatusScreen {
	c.lock.Lock()
	defer c.lock.Unlock()

	renderer, _ := NewRenderer(c.options.Policy)
	s := &StatusScreen{
		core:     c,
		root:     canvas.NewScreen(images.ScreenWidth, images.ScreenHeight),
		sink:     sink,
		renderer: renderer,
	}
	renderer.Build(s.root, func(img *canvas.Image) {
		s.widgets = append(s.widgets, c.engine.attach(img))
	})
	c.screens = append(c.screens, s)

	if !c.greetingDone && c.options.GreetingHold > 0 {
		c.startGreeting()
	}

	if c.holding {
		s.renderer.Greet(c.options.Greeting)
		c.state = c.snapshots.Build()
		c.engine.setAnimating(c.state.UsbConnected)
		c.commit()
	} else {
		c.update()
	}
	return s
}

// Close stops listening, cancels pending timers and closes every screen.
func (c *Core) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.subscription != nil {
		c.subscription.Cancel()
		c.subscription = nil
	}
	if c.greetingTimer != nil {
		c.greetingTimer.Stop()
	}
	c.holding = false
	c.greetingDone = true
	c.engine.close()
	for _, s := range c.screens {
		s.close()
	}
	c.screens = nil
}

func (c *Core) update() {
	c.state = c.snapshots.Build()
	logrus.Debugf("Status: battery %d%%, usb %t", c.state.BatteryLevel, c.state.UsbConnected)

	if !c.holding {
		for _, s := range c.screens {
			s.render(c.state)
		}
	}
	c.engine.setAnimating(c.state.UsbConnected)
	c.commit()
}

func (c *Core) commit() {
	for _, s := range c.screens {
		s.commit()
	}
}

func (c *Core) startGreeting() {
	c.greetingDone = true
	c.holding = true
	c.greetingTimer = c.options.Clock.AfterFunc(c.options.GreetingHold, c.onGreetingTimer)
	logrus.Debugf("Hold greeting for %v", c.options.GreetingHold)
}

// endGreeting cancels the one-shot timer when an event supersedes it.
func (c *Core) endGreeting() {
	c.holding = false
	if c.greetingTimer != nil {
		c.greetingTimer.Stop()
	}
}

func (c *Core) onGreetingTimer() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.holding {
		return
	}
	logrus.Debugf("Greeting hold elapsed")
	c.holding = false
	c.update()
}

// StatusScreen is the handle returned by BuildStatusScreen.
type StatusScreen struct {
	core     *Core
	root     *canvas.Screen
	sink     canvas.Sink
	renderer Renderer
	widgets  []*Widget
	closed   bool
}

func (s *StatusScreen) Root() *canvas.Screen {
	return s.root
}

// Close detaches the screen: its widgets are deregistered and nothing is
// drawn on it anymore.
func (s *StatusScreen) Close() {
	if s == nil {
		return
	}
	s.core.lock.Lock()
	defer s.core.lock.Unlock()

	s.close()
	for i, candidate := range s.core.screens {
		if candidate == s {
			s.core.screens = append(s.core.screens[:i:i], s.core.screens[i+1:]...)
			break
		}
	}
}

func (s *StatusScreen) close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, w := range s.widgets {
		s.core.registry.deregister(w)
	}
}

func (s *StatusScreen) render(state StatusState) {
	if s == nil || s.closed {
		return
	}
	s.renderer.Render(state)
}

func (s *StatusScreen) commit() {
	if s == nil || s.closed {
		return
	}
	s.root.Commit(s.sink)
}
