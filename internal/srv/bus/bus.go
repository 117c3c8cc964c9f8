package bus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/sirupsen/logrus"
)

// Listener receives events. It runs in the goroutine that raised the event
// and must be done with the payload when it returns.
type Listener func(ev event.Event)

// EventBus delivers typed state-change notifications to subscribers.
type EventBus struct {
	lock          sync.RWMutex
	subscriptions map[string]*Subscription
}

type Subscription struct {
	id       string
	kinds    map[event.Kind]bool
	listener Listener

	lock      sync.RWMutex
	cancelled bool
	bus       *EventBus
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscriptions: make(map[string]*Subscription),
	}
}

// Subscribe registers listener for the given kinds. With no kind the listener
// receives everything.
func (b *EventBus) Subscribe(listener Listener, kinds ...event.Kind) *Subscription {
	sub := &Subscription{
		id:       uuid.New().String(),
		kinds:    make(map[event.Kind]bool, len(kinds)),
		listener: listener,
		bus:      b,
	}
	for _, kind := range kinds {
		sub.kinds[kind] = true
	}

	b.lock.Lock()
	b.subscriptions[sub.id] = sub
	b.lock.Unlock()

	logrus.Debugf("New bus subscription %s for %v", sub.id, kinds)
	return sub
}

// Raise delivers ev to every matching subscription before returning.
func (b *EventBus) Raise(ev event.Event) {
	b.lock.RLock()
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.accepts(ev.Kind) {
			subs = append(subs, sub)
		}
	}
	b.lock.RUnlock()

	logrus.Debugf("Raise %s event to %d listener(s)", ev.Kind, len(subs))
	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// SubscriberCount returns the number of live subscriptions accepting kind.
func (b *EventBus) SubscriberCount(kind event.Kind) int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	count := 0
	for _, sub := range b.subscriptions {
		if sub.accepts(kind) {
			count++
		}
	}
	return count
}

func (s *Subscription) ID() string {
	return s.id
}

// Cancel removes the subscription. Calling it twice is harmless.
func (s *Subscription) Cancel() {
	s.lock.Lock()
	if s.cancelled {
		s.lock.Unlock()
		return
	}
	s.cancelled = true
	s.lock.Unlock()

	s.bus.lock.Lock()
	delete(s.bus.subscriptions, s.id)
	s.bus.lock.Unlock()
}

func (s *Subscription) accepts(kind event.Kind) bool {
	return len(s.kinds) == 0 || s.kinds[kind]
}

func (s *Subscription) deliver(ev event.Event) {
	s.lock.RLock()
	cancelled := s.cancelled
	s.lock.RUnlock()
	if cancelled {
		return
	}
	s.listener(ev)
}
