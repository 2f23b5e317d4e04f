package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"eventme/internal/model"
	"eventme/internal/notify"
)

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(notify.Kind) { p.n++ }

func TestAddKeepsInsertionOrder(t *testing.T) {
	pub := &countingPublisher{}
	c := New(pub)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	late := model.Event{ID: uuid.New(), Title: "late", Date: base.Add(2 * time.Hour)}
	early := model.Event{ID: uuid.New(), Title: "early", Date: base}
	c.Add(late)
	c.Add(early)

	all := c.All()
	if len(all) != 2 || all[0].ID != late.ID || all[1].ID != early.ID {
		t.Fatalf("unexpected order: %+v", all)
	}
	if pub.n != 2 {
		t.Fatalf("expected 2 signals, got %d", pub.n)
	}

	sorted := c.ByDateAscending()
	if sorted[0].ID != early.ID || sorted[1].ID != late.ID {
		t.Fatalf("unexpected sorted order: %+v", sorted)
	}
	// The stored order is untouched by sorting.
	if c.All()[0].ID != late.ID {
		t.Fatal("ByDateAscending mutated the catalog")
	}
}

func TestByDateAscendingStableOnTies(t *testing.T) {
	c := New(nil)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first := model.Event{ID: uuid.New(), Date: at}
	second := model.Event{ID: uuid.New(), Date: at}
	c.Add(first)
	c.Add(second)

	got := c.ByDateAscending()
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatal("tie order not preserved")
	}
}

func TestDuplicateIDsAccepted(t *testing.T) {
	c := New(nil)
	ev := model.Event{ID: uuid.New()}
	c.Add(ev)
	c.Add(ev)
	if c.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", c.Len())
	}
}

func TestGet(t *testing.T) {
	c := New(nil)
	ev := model.Event{ID: uuid.New(), Title: "x"}
	c.Add(ev)

	if got, ok := c.Get(ev.ID); !ok || got.Title != "x" {
		t.Fatalf("Get returned %+v, %v", got, ok)
	}
	if _, ok := c.Get(uuid.New()); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestSamples(t *testing.T) {
	now := time.Now()
	s := Samples(now)
	if len(s) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(s))
	}
	if s[0].ID == s[1].ID {
		t.Fatal("sample ids must differ")
	}
	if !s[0].Date.After(now) || !s[1].Date.After(s[0].Date) {
		t.Fatal("samples should start in the future, in order")
	}
}
