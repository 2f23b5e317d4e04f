// Package reservation tracks which events the user reserved and which they
// saved as favorites. The two lists are independent and keyed by event ID.
package reservation

import (
	"sync"

	"github.com/google/uuid"

	"eventme/internal/model"
	"eventme/internal/notify"
)

// Store holds the reservation set. It never schedules or cancels reminders;
// callers that reserve or cancel do that themselves.
type Store struct {
	mu       sync.Mutex
	reserved []model.Event
	saved    []model.Event
	pub      notify.Publisher
}

// New returns an empty Store. pub may be nil.
func New(pub notify.Publisher) *Store {
	return &Store{pub: pub}
}

// Reserve appends ev unless an event with the same ID is already reserved.
// It reports whether the set changed.
func (s *Store) Reserve(ev model.Event) bool {
	s.mu.Lock()
	changed := indexOf(s.reserved, ev.ID) < 0
	if changed {
		s.reserved = append(s.reserved, ev)
	}
	s.mu.Unlock()

	s.signal(changed)
	return changed
}

// CancelReservation removes the reserved entry for ev's ID, if any.
func (s *Store) CancelReservation(ev model.Event) bool {
	s.mu.Lock()
	var changed bool
	s.reserved, changed = remove(s.reserved, ev.ID)
	s.mu.Unlock()

	s.signal(changed)
	return changed
}

// IsReserved reports whether an event with ev's ID is reserved.
func (s *Store) IsReserved(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.reserved, ev.ID) >= 0
}

// ToggleSave saves ev if it is not saved and unsaves it otherwise. It always
// signals a change and returns whether ev is saved afterwards.
func (s *Store) ToggleSave(ev model.Event) bool {
	s.mu.Lock()
	var removed bool
	s.saved, removed = remove(s.saved, ev.ID)
	if !removed {
		s.saved = append(s.saved, ev)
	}
	s.mu.Unlock()

	s.signal(true)
	return !removed
}

// IsSaved reports whether an event with ev's ID is saved.
func (s *Store) IsSaved(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.saved, ev.ID) >= 0
}

// RemoveSaved unsaves ev if present and reports whether anything changed.
func (s *Store) RemoveSaved(ev model.Event) bool {
	s.mu.Lock()
	var changed bool
	s.saved, changed = remove(s.saved, ev.ID)
	s.mu.Unlock()

	s.signal(changed)
	return changed
}

// Reserved returns a snapshot of reserved events in reservation order.
func (s *Store) Reserved() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.reserved)
}

// Saved returns a snapshot of saved events in save order.
func (s *Store) Saved() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.saved)
}

func (s *Store) signal(changed bool) {
	if changed && s.pub != nil {
		s.pub.Publish(notify.StateChanged)
	}
}

func indexOf(events []model.Event, id uuid.UUID) int {
	for i, ev := range events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

// remove deletes the entry with id. The backing array of the input is never
// written so earlier snapshots stay intact.
func remove(events []model.Event, id uuid.UUID) ([]model.Event, bool) {
	i := indexOf(events, id)
	if i < 0 {
		return events, false
	}
	out := make([]model.Event, 0, len(events)-1)
	out = append(out, events[:i]...)
	out = append(out, events[i+1:]...)
	return out, true
}

func clone(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	return out
}
