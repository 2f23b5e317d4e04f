package reservation

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"eventme/internal/model"
	"eventme/internal/notify"
)

type countingPublisher struct {
	mu sync.Mutex
	n  int
}

func (p *countingPublisher) Publish(notify.Kind) {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func newEvent(title string) model.Event {
	return model.Event{
		ID:    uuid.New(),
		Title: title,
		Date:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func ids(events []model.Event) []uuid.UUID {
	out := make([]uuid.UUID, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestReserveIsIdempotent(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub)
	ev := newEvent("Meetup")

	if !s.Reserve(ev) {
		t.Fatal("first reserve should change the set")
	}
	if s.Reserve(ev) {
		t.Fatal("second reserve should be a no-op")
	}
	if got := s.Reserved(); len(got) != 1 || got[0].ID != ev.ID {
		t.Fatalf("unexpected reserved: %v", ids(got))
	}
	if pub.n != 1 {
		t.Fatalf("expected 1 signal, got %d", pub.n)
	}
}

func TestIdentityKeyedMembership(t *testing.T) {
	s := New(nil)
	a := newEvent("Meetup")
	b := newEvent("Meetup")

	s.Reserve(a)
	s.Reserve(b)
	s.ToggleSave(a)
	s.ToggleSave(b)

	if got := ids(s.Reserved()); len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("reserved: %v", got)
	}
	if got := ids(s.Saved()); len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("saved: %v", got)
	}
}

func TestMembershipIgnoresOtherFields(t *testing.T) {
	s := New(nil)
	ev := newEvent("Original")
	s.Reserve(ev)

	edited := ev
	edited.Title = "Renamed"
	edited.Date = edited.Date.Add(time.Hour)
	if !s.IsReserved(edited) {
		t.Fatal("membership must be keyed on id")
	}
	if s.Reserve(edited) {
		t.Fatal("reserving an edited copy must be a no-op")
	}
}

func TestCancelReservation(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub)
	ev := newEvent("x")

	if s.CancelReservation(ev) {
		t.Fatal("cancel of unknown event should be a no-op")
	}
	s.Reserve(ev)
	if !s.CancelReservation(ev) {
		t.Fatal("cancel should remove the reservation")
	}
	if s.IsReserved(ev) {
		t.Fatal("event still reserved")
	}
	if pub.n != 2 {
		t.Fatalf("expected 2 signals, got %d", pub.n)
	}
}

func TestToggleSave(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub)
	ev := newEvent("x")

	if !s.ToggleSave(ev) || !s.IsSaved(ev) {
		t.Fatal("first toggle should save")
	}
	if s.ToggleSave(ev) || s.IsSaved(ev) {
		t.Fatal("second toggle should unsave")
	}
	if pub.n != 2 {
		t.Fatalf("toggle always signals; got %d", pub.n)
	}
}

func TestRemoveSaved(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub)
	ev := newEvent("x")

	if s.RemoveSaved(ev) {
		t.Fatal("remove of unsaved event should be a no-op")
	}
	if pub.n != 0 {
		t.Fatal("no-op must not signal")
	}
	s.ToggleSave(ev)
	if !s.RemoveSaved(ev) || s.IsSaved(ev) {
		t.Fatal("remove should unsave")
	}
}

func TestListsAreIndependent(t *testing.T) {
	s := New(nil)
	ev := newEvent("x")

	s.ToggleSave(ev)
	if s.IsReserved(ev) {
		t.Fatal("toggleSave altered reserved")
	}
	s.Reserve(ev)
	s.CancelReservation(ev)
	if !s.IsSaved(ev) {
		t.Fatal("reserve/cancel altered saved")
	}
}

func TestSnapshotsAreStable(t *testing.T) {
	s := New(nil)
	a, b := newEvent("a"), newEvent("b")
	s.Reserve(a)
	s.Reserve(b)

	snap := s.Reserved()
	s.CancelReservation(a)

	if len(snap) != 2 || snap[0].ID != a.ID || snap[1].ID != b.ID {
		t.Fatalf("snapshot changed after mutation: %v", ids(snap))
	}
}

func TestConcurrentReserve(t *testing.T) {
	s := New(nil)
	ev := newEvent("x")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Reserve(ev)
			s.IsReserved(ev)
		}()
	}
	wg.Wait()

	if n := len(s.Reserved()); n != 1 {
		t.Fatalf("expected exactly one reservation, got %d", n)
	}
}
