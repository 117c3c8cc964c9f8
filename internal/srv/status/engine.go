package status

import (
	"image"
	"sync"
	"time"

	"github.com/jypelle/mkbdstatus/internal/srv/canvas"
	"github.com/jypelle/mkbdstatus/internal/srv/clock"
	"github.com/sirupsen/logrus"
)

// AnimationState is owned by the Engine.
type AnimationState struct {
	CurrentFrame int  `json:"frame"`
	IsAnimating  bool `json:"animating"`
}

// Engine cycles the frame table over every registered widget while the
// board is powered over USB.
//
//	Idle    --animate--> Running  frame=0, push, arm timer
//	Running --tick-->    Running  frame=(frame+1)%n, push
//	Running --stop-->    Idle     pause timer, push terminal frame
//
// Lowercase methods expect the shared lock to be held.
type Engine struct {
	lock     sync.Locker
	clock    clock.Clock
	registry *Registry

	frames   []image.Image
	terminal image.Image
	interval time.Duration

	// The timer is created on the first start and reused afterwards.
	timer      clock.Timer
	armed      bool
	staleFires int

	state AnimationState

	// onPush runs after frames were pushed, with the lock held.
	onPush func()
}

func NewEngine(lock sync.Locker, clk clock.Clock, registry *Registry, frames []image.Image, terminal image.Image, duration time.Duration) *Engine {
	interval := duration
	if len(frames) > 0 {
		interval = duration / time.Duration(len(frames))
	}
	return &Engine{
		lock:     lock,
		clock:    clk,
		registry: registry,
		frames:   frames,
		terminal: terminal,
		interval: interval,
	}
}

func (e *Engine) FrameInterval() time.Duration {
	return e.interval
}

func (e *Engine) State() AnimationState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

// SetAnimating applies the should-animate predicate. Repeating the current
// value does nothing.
func (e *Engine) SetAnimating(animate bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.setAnimating(animate)
}

func (e *Engine) setAnimating(animate bool) {
	if animate == e.state.IsAnimating || len(e.frames) == 0 {
		return
	}
	if animate {
		e.start()
	} else {
		e.stop()
	}
}

func (e *Engine) start() {
	logrus.Debugf("Start battery animation (%v per frame)", e.interval)
	e.state.IsAnimating = true
	e.state.CurrentFrame = 0
	e.pushAll(e.frames[0])

	if e.timer == nil {
		e.timer = e.clock.AfterFunc(e.interval, e.onTimer)
	} else {
		e.timer.Reset(e.interval)
	}
	e.armed = true
}

func (e *Engine) stop() {
	logrus.Debugf("Stop battery animation")
	e.state.IsAnimating = false
	e.pause()
	e.pushAll(e.terminal)
}

func (e *Engine) pause() {
	if e.timer == nil || !e.armed {
		return
	}
	// A timer that already fired has a callback waiting for the lock.
	if !e.timer.Stop() {
		e.staleFires++
	}
	e.armed = false
}

func (e *Engine) onTimer() {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.staleFires > 0 {
		e.staleFires--
		return
	}
	e.armed = false
	if !e.state.IsAnimating {
		return
	}

	e.state.CurrentFrame = (e.state.CurrentFrame + 1) % len(e.frames)
	e.pushAll(e.frames[e.state.CurrentFrame])

	// onPush may have stopped the animation
	if e.state.IsAnimating && !e.armed {
		e.timer.Reset(e.interval)
		e.armed = true
	}
}

func (e *Engine) current() image.Image {
	if e.state.IsAnimating {
		return e.frames[e.state.CurrentFrame]
	}
	return e.terminal
}

// attach registers a widget and shows the current frame on it at once.
func (e *Engine) attach(img *canvas.Image) *Widget {
	w := e.registry.register(img)
	w.push(e.current())
	return w
}

func (e *Engine) pushAll(src image.Image) {
	e.registry.forEach(func(w *Widget) {
		w.push(src)
	})
	if e.onPush != nil {
		e.onPush()
	}
}

// close pauses the timer for good; the engine can still be restarted.
func (e *Engine) close() {
	e.state.IsAnimating = false
	e.pause()
}
