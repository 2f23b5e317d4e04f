package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventme/internal/model"
	"eventme/internal/notify"
)

// Catalog holds the known events in insertion order. It does not check IDs
// for uniqueness; the reservation store is where identity matters.
type Catalog struct {
	mu     sync.RWMutex
	events []model.Event
	pub    notify.Publisher
}

// New returns an empty Catalog. pub may be nil.
func New(pub notify.Publisher) *Catalog {
	return &Catalog{pub: pub}
}

// Add appends ev and emits StateChanged.
func (c *Catalog) Add(ev model.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()

	if c.pub != nil {
		c.pub.Publish(notify.StateChanged)
	}
}

// All returns a copy of the events in insertion order.
func (c *Catalog) All() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByDateAscending returns a copy sorted by start time. Events starting at the
// same instant keep insertion order.
func (c *Catalog) ByDateAscending() []model.Event {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Get returns the first event with the given id.
func (c *Catalog) Get(id uuid.UUID) (model.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ev := range c.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Len reports the number of events.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Samples returns the built-in demo events, relative to now.
func Samples(now time.Time) []model.Event {
	return []model.Event{
		{
			ID:          uuid.New(),
			Title:       "Food Truck Festival",
			Description: "Live music, street eats, and community vibes.",
			Host:        "City Plaza",
			Location:    "City Plaza",
			Latitude:    37.7749,
			Longitude:   -122.4194,
			Date:        now.Add(time.Hour),
			ImageName:   "foodtruck",
		},
		{
			ID:          uuid.New(),
			Title:       "Pop-up Concert",
			Description: "Indie bands performing live downtown.",
			Host:        "Music Co.",
			Location:    "Downtown Stage",
			Latitude:    37.7793,
			Longitude:   -122.4182,
			Date:        now.Add(2 * time.Hour),
			ImageName:   "concert",
		},
	}
}
