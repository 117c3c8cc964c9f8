package status

import (
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/jypelle/mkbdstatus/internal/srv/canvas"
	"github.com/sirupsen/logrus"
)

// Widget is an animated image bound to a canvas. Widgets only come out of a
// Registry, so a widget is registered exactly once and cannot be pushed to
// after Close.
type Widget struct {
	id         string
	image      *canvas.Image
	registry   *Registry
	registered bool
}

func (w *Widget) ID() string {
	return w.id
}

// Close deregisters the widget. It may race with an animation tick: the
// tick either pushes before Close takes the lock or skips the widget.
func (w *Widget) Close() {
	w.registry.lock.Lock()
	defer w.registry.lock.Unlock()
	w.registry.deregister(w)
}

func (w *Widget) Registered() bool {
	w.registry.lock.Lock()
	defer w.registry.lock.Unlock()
	return w.registered
}

func (w *Widget) push(src image.Image) {
	if !w.registered {
		return
	}
	w.image.SetSource(src)
}

// Registry tracks live widgets. Its lowercase methods expect the shared
// lock to be held by the caller.
type Registry struct {
	lock    sync.Locker
	widgets []*Widget
}

func NewRegistry(lock sync.Locker) *Registry {
	return &Registry{lock: lock}
}

func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.widgets)
}

func (r *Registry) register(img *canvas.Image) *Widget {
	w := &Widget{
		id:         uuid.New().String(),
		image:      img,
		registry:   r,
		registered: true,
	}
	r.widgets = append(r.widgets, w)
	logrus.Debugf("Widget %s registered", w.id)
	return w
}

func (r *Registry) deregister(w *Widget) {
	if !w.registered {
		return
	}
	w.registered = false
	for i, candidate := range r.widgets {
		if candidate == w {
			r.widgets = append(r.widgets[:i:i], r.widgets[i+1:]...)
			break
		}
	}
	logrus.Debugf("Widget %s deregistered", w.id)
}

// forEach walks a copy of the widget list, so fn may deregister widgets.
// A widget deregistered during the walk is skipped.
func (r *Registry) forEach(fn func(w *Widget)) {
	widgets := make([]*Widget, len(r.widgets))
	copy(widgets, r.widgets)
	for _, w := range widgets {
		if w.registered {
			fn(w)
		}
	}
}
