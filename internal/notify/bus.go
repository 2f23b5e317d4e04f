// Package notify is the process-wide change signal shared by the catalog,
// the reservation store, the theme preference and the presentation layer.
package notify

import (
	"sync"
	"sync/atomic"
)

// Kind identifies which part of the state changed. Signals carry no payload.
type Kind int

const (
	// StateChanged covers any catalog or reservation/favorite mutation.
	StateChanged Kind = iota + 1
	// ThemeChanged is sent when the display theme preference flips.
	ThemeChanged
)

func (k Kind) String() string {
	switch k {
	case StateChanged:
		return "state_changed"
	case ThemeChanged:
		return "theme_changed"
	default:
		return "unknown"
	}
}

// Publisher is the narrow side used by stores that emit signals.
type Publisher interface {
	Publish(Kind)
}

// Handler receives a signal. It runs on the publisher's goroutine and must
// not block.
type Handler func(Kind)

// Bus is a multi-subscriber broadcast. The zero value is ready to use.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]*Subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscription is the handle returned by Subscribe. Its owner must call
// Release when it goes inactive.
type Subscription struct {
	bus      *Bus
	id       uint64
	kinds    map[Kind]bool
	handler  Handler
	released atomic.Bool
}

// Subscribe registers h for the given kinds, or for every kind if none are
// given.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uint64]*Subscription)
	}
	b.next++
	s := &Subscription{bus: b, id: b.next, handler: h}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	b.subs[s.id] = s
	return s
}

// Release unregisters the subscription. A Publish that starts after Release
// returns never reaches the handler, but one already running on another
// goroutine may still deliver a final signal. Release may be called from
// inside the handler. Calling it more than once is a no-op.
func (s *Subscription) Release() {
	if s == nil || s.released.Swap(true) {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}

func (s *Subscription) wants(k Kind) bool {
	return s.kinds == nil || s.kinds[k]
}

// Publish delivers k to every current subscriber. Order among subscribers
// is unspecified. Publishing with no subscribers does nothing.
func (b *Bus) Publish(k Kind) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(k) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if s.released.Load() {
			continue
		}
		s.handler(k)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
