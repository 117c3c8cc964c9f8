package status

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/jypelle/mkbdstatus/internal/srv/bus"
	"github.com/jypelle/mkbdstatus/internal/srv/clock"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usbEvent(powered bool) event.Event {
	return event.Event{Kind: event.USB_CONN_STATE_CHANGED, Data: event.UsbConnStateChangedData{Powered: powered}}
}

func indicatorOf(t *testing.T, s *StatusScreen) *DualIconRenderer {
	t.Helper()
	r, ok := s.renderer.(*DualIconRenderer)
	require.True(t, ok)
	return r
}

func TestNewCoreValidatesOptions(t *testing.T) {
	_, err := NewCore(nil, nil, Options{Policy: "blink", AnimationDuration: time.Second})
	assert.Error(t, err)

	_, err = NewCore(nil, nil, Options{Policy: TEXT_POLICY})
	assert.Error(t, err)

	_, err = NewCore(nil, nil, Options{Policy: TEXT_POLICY, AnimationDuration: time.Second, Frames: []image.Image{}})
	assert.Error(t, err)
}

func TestBuildStatusScreenIsNeverBlank(t *testing.T) {
	power := &fakePower{level: 64}
	core, _, _, _ := newTestCore(t, TEXT_POLICY, power)
	sink := &recordingSink{}

	s := core.BuildStatusScreen(sink)

	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "Battery: 64%", s.renderer.(*TextRenderer).label.Text())
	state, anim := core.Status()
	assert.Equal(t, StatusState{BatteryLevel: 64}, state)
	assert.False(t, anim.IsAnimating)
}

func TestUsbPluggedAtFortyTwo(t *testing.T) {
	power := &fakePower{level: 42}
	core, clk, frames, terminal := newTestCore(t, DUAL_ICON_POLICY, power)
	b := bus.NewEventBus()
	core.Listen(b)

	s := core.BuildStatusScreen(&recordingSink{})
	r := indicatorOf(t, s)
	require.Same(t, terminal, r.indicator.Source())
	require.Equal(t, "42%", r.label.Text())

	power.set(42, true)
	b.Raise(usbEvent(true))

	_, anim := core.Status()
	require.True(t, anim.IsAnimating)
	assert.True(t, r.usbIcon.Visible())

	seen := []int{frameIndex(frames, r.indicator.Source())}
	for i := 0; i < 4; i++ {
		clk.Advance(500 * time.Millisecond)
		seen = append(seen, frameIndex(frames, r.indicator.Source()))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 0}, seen)

	// unplug mid-cycle
	clk.Advance(500 * time.Millisecond)
	power.set(42, false)
	b.Raise(usbEvent(false))

	_, anim = core.Status()
	assert.False(t, anim.IsAnimating)
	assert.Same(t, terminal, r.indicator.Source())
	assert.True(t, r.batteryIcon.Visible())
	assert.False(t, r.usbIcon.Visible())
}

func TestRepeatedEventDoesNotResetAnimation(t *testing.T) {
	power := &fakePower{level: 80, powered: true}
	core, clk, _, _ := newTestCore(t, DUAL_ICON_POLICY, power)
	core.BuildStatusScreen(&recordingSink{})

	clk.Advance(1000 * time.Millisecond)
	power.set(79, true)
	core.OnEvent(event.Event{Kind: event.BATTERY_STATE_CHANGED})

	_, anim := core.Status()
	assert.Equal(t, AnimationState{CurrentFrame: 2, IsAnimating: true}, anim)
}

func TestSecondScreenPicksUpCurrentFrame(t *testing.T) {
	power := &fakePower{level: 50, powered: true}
	core, clk, frames, _ := newTestCore(t, DUAL_ICON_POLICY, power)
	first := core.BuildStatusScreen(&recordingSink{})

	clk.Advance(1000 * time.Millisecond)
	second := core.BuildStatusScreen(&recordingSink{})

	assert.Equal(t, 2, frameIndex(frames, indicatorOf(t, second).indicator.Source()))
	assert.Equal(t, 2, core.Registry().Len())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, 3, frameIndex(frames, indicatorOf(t, first).indicator.Source()))
	assert.Equal(t, 3, frameIndex(frames, indicatorOf(t, second).indicator.Source()))

	second.Close()
	assert.Equal(t, 1, core.Registry().Len())
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, frameIndex(frames, indicatorOf(t, first).indicator.Source()))
	assert.Equal(t, 3, frameIndex(frames, indicatorOf(t, second).indicator.Source()))
}

func TestTicksAreCommittedToTheDisplay(t *testing.T) {
	power := &fakePower{level: 50, powered: true}
	core, clk, _, _ := newTestCore(t, DUAL_ICON_POLICY, power)
	sink := &recordingSink{}
	core.BuildStatusScreen(sink)
	before := sink.count()

	clk.Advance(1000 * time.Millisecond)
	assert.Equal(t, before+2, sink.count())
}

func TestGreetingHeldThenStatusShownOnce(t *testing.T) {
	power := &fakePower{level: 42}
	clk := clock.NewManual()
	core, err := NewCore(power, power, Options{
		Policy:            IMAGE_SWAP_POLICY,
		AnimationDuration: 2 * time.Second,
		Greeting:          "Hello P1!",
		GreetingHold:      5 * time.Second,
		Clock:             clk,
	})
	require.NoError(t, err)
	defer core.Close()

	s := core.BuildStatusScreen(&recordingSink{})
	r := s.renderer.(*ImageSwapRenderer)
	assert.Equal(t, "Hello P1!", r.label.Text())

	clk.Advance(4999 * time.Millisecond)
	assert.Equal(t, "Hello P1!", r.label.Text())

	clk.Advance(time.Millisecond)
	assert.Equal(t, "Battery: 42%", r.label.Text())
	assert.Equal(t, 0, clk.Pending())

	// a later screen is not held again
	other := core.BuildStatusScreen(&recordingSink{})
	assert.Equal(t, "Battery: 42%", other.renderer.(*ImageSwapRenderer).label.Text())
}

func TestEventSupersedesGreeting(t *testing.T) {
	power := &fakePower{level: 42}
	clk := clock.NewManual()
	core, err := NewCore(power, power, Options{
		Policy:            IMAGE_SWAP_POLICY,
		AnimationDuration: 2 * time.Second,
		Greeting:          "Hello P1!",
		GreetingHold:      5 * time.Second,
		Clock:             clk,
	})
	require.NoError(t, err)
	defer core.Close()

	s := core.BuildStatusScreen(&recordingSink{})
	r := s.renderer.(*ImageSwapRenderer)

	clk.Advance(time.Second)
	power.set(42, true)
	core.OnEvent(usbEvent(true))
	assert.True(t, r.splash.Visible())
	assert.False(t, r.label.Visible())

	// the cancelled hold must not bring the text back
	power.set(41, true)
	clk.Advance(10 * time.Second)
	assert.True(t, r.splash.Visible())
	assert.Equal(t, "Hello P1!", r.label.Text())
}

type panickingSink struct{}

func (panickingSink) ShowImage(img image.Image) {
	panic("spi bus gone")
}

func TestRenderFailureIsAbsorbed(t *testing.T) {
	power := &fakePower{level: 42}
	core, _, _, _ := newTestCore(t, TEXT_POLICY, power)
	b := bus.NewEventBus()
	core.Listen(b)

	assert.Panics(t, func() { core.BuildStatusScreen(panickingSink{}) })

	power.set(12, false)
	assert.NotPanics(t, func() {
		b.Raise(event.Event{Kind: event.BATTERY_STATE_CHANGED})
	})

	// the lock was released
	state, _ := core.Status()
	assert.Equal(t, 12, state.BatteryLevel)
}

func TestHardwareReadFailureKeepsDisplay(t *testing.T) {
	power := &fakePower{level: 42}
	core, _, _, _ := newTestCore(t, TEXT_POLICY, power)
	s := core.BuildStatusScreen(&recordingSink{})

	power.fail(errRead)
	core.OnEvent(event.Event{Kind: event.BATTERY_STATE_CHANGED})
	assert.Equal(t, "Battery: 42%", s.renderer.(*TextRenderer).label.Text())
}

func TestCloseStopsListeningAndAnimating(t *testing.T) {
	power := &fakePower{level: 42}
	core, clk, _, _ := newTestCore(t, DUAL_ICON_POLICY, power)
	b := bus.NewEventBus()
	core.Listen(b)
	core.BuildStatusScreen(&recordingSink{})

	core.Close()
	assert.Equal(t, 0, b.SubscriberCount(event.USB_CONN_STATE_CHANGED))
	assert.Equal(t, 0, core.Registry().Len())

	power.set(42, true)
	b.Raise(usbEvent(true))
	_, anim := core.Status()
	assert.False(t, anim.IsAnimating)
	assert.Equal(t, 0, clk.Pending())
}

func TestConcurrentEventsAndTicks(t *testing.T) {
	power := &fakePower{level: 50}
	core, clk, _, _ := newTestCore(t, DUAL_ICON_POLICY, power)
	b := bus.NewEventBus()
	core.Listen(b)
	core.BuildStatusScreen(&recordingSink{})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			power.set(i%101, i%3 == 0)
			b.Raise(usbEvent(i%3 == 0))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			clk.Advance(100 * time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			s := core.BuildStatusScreen(&recordingSink{})
			s.Close()
		}
	}()
	wg.Wait()

	_, anim := core.Status()
	assert.Less(t, anim.CurrentFrame, 4)
	assert.Equal(t, 1, core.Registry().Len())
}
