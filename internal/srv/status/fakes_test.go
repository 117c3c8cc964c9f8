package status

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/jypelle/mkbdstatus/internal/srv/clock"
	"github.com/stretchr/testify/require"
)

type fakePower struct {
	lock       sync.Mutex
	level      int
	powered    bool
	levelErr   error
	poweredErr error
}

func (p *fakePower) BatteryLevel() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level, p.levelErr
}

func (p *fakePower) UsbPowered() (bool, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.powered, p.poweredErr
}

func (p *fakePower) set(level int, powered bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.level = level
	p.powered = powered
}

func (p *fakePower) fail(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.levelErr = err
	p.poweredErr = err
}

var errRead = errors.New("i2c read timeout")

type recordingSink struct {
	lock   sync.Mutex
	frames []image.Image
}

func (r *recordingSink) ShowImage(img image.Image) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.frames = append(r.frames, img)
}

func (r *recordingSink) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.frames)
}

// testFrames are distinct 1x1 images so pushes can be told apart.
func testFrames() ([]image.Image, image.Image) {
	frames := make([]image.Image, 4)
	for i := range frames {
		frames[i] = image.NewAlpha(image.Rect(0, 0, 1, 1))
	}
	return frames, image.NewAlpha(image.Rect(0, 0, 1, 1))
}

func frameIndex(frames []image.Image, src image.Image) int {
	for i, f := range frames {
		if f == src {
			return i
		}
	}
	return -1
}

func newTestCore(t *testing.T, policy Policy, power *fakePower) (*Core, *clock.Manual, []image.Image, image.Image) {
	t.Helper()
	clk := clock.NewManual()
	frames, terminal := testFrames()
	core, err := NewCore(power, power, Options{
		Policy:            policy,
		AnimationDuration: 2 * time.Second,
		Frames:            frames,
		TerminalFrame:     terminal,
		Clock:             clk,
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)
	return core, clk, frames, terminal
}
