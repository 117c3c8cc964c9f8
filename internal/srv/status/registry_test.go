package status

import (
	"image"
	"sync"
	"testing"

	"github.com/jypelle/mkbdstatus/internal/srv/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGivesDistinctWidgets(t *testing.T) {
	var lock sync.Mutex
	r := NewRegistry(&lock)
	root := canvas.NewScreen(16, 16)

	lock.Lock()
	a := r.register(root.CreateImage())
	b := r.register(root.CreateImage())
	lock.Unlock()

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())
	assert.True(t, a.Registered())

	a.Close()
	a.Close()
	assert.False(t, a.Registered())
	assert.Equal(t, 1, r.Len())
}

func TestDeregisterDuringWalkSkipsWidget(t *testing.T) {
	var lock sync.Mutex
	r := NewRegistry(&lock)
	root := canvas.NewScreen(16, 16)
	src := image.NewAlpha(image.Rect(0, 0, 1, 1))

	lock.Lock()
	defer lock.Unlock()
	first := r.register(root.CreateImage())
	second := r.register(root.CreateImage())
	third := r.register(root.CreateImage())

	var visited []*Widget
	r.forEach(func(w *Widget) {
		visited = append(visited, w)
		if w == first {
			r.deregister(second)
		}
		w.push(src)
	})

	assert.Equal(t, []*Widget{first, third}, visited)
	assert.Nil(t, second.image.Source())
	assert.Equal(t, image.Image(src), third.image.Source())
	assert.Len(t, r.widgets, 2)
}

func TestPushAfterCloseIsIgnored(t *testing.T) {
	var lock sync.Mutex
	r := NewRegistry(&lock)
	root := canvas.NewScreen(16, 16)

	lock.Lock()
	w := r.register(root.CreateImage())
	lock.Unlock()

	w.Close()
	w.push(image.NewAlpha(image.Rect(0, 0, 1, 1)))
	require.Nil(t, w.image.Source())
}
