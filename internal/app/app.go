// Package app composes the catalog, reservation store, reminder scheduler
// and change notifier into the operations the presentation layer calls.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventme/internal/catalog"
	"eventme/internal/ics"
	"eventme/internal/index"
	appLog "eventme/internal/log"
	"eventme/internal/model"
	"eventme/internal/notify"
	"eventme/internal/reminder"
	"eventme/internal/reservation"
	"eventme/internal/theme"
)

// Reminders is the scheduling side App depends on; *reminder.Scheduler
// satisfies it.
type Reminders interface {
	Schedule(ev model.Event) (model.ReminderRequest, bool, error)
	Cancel(ev model.Event)
	CancelAll()
}

// FeedLoader fetches an ICS payload; *ics.Loader satisfies it.
type FeedLoader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// Deps are the services an App is built from. Bus, Catalog and
// Reservations are created if nil.
type Deps struct {
	Bus          *notify.Bus
	Catalog      *catalog.Catalog
	Reservations *reservation.Store
	Reminders    Reminders
	Theme        *theme.Preference
	Location     *time.Location
}

// App is explicitly constructed and passed to whoever needs it; there is
// no package-level state.
type App struct {
	// mu orders reservation changes with their reminder side effects.
	mu sync.Mutex

	Bus          *notify.Bus
	Catalog      *catalog.Catalog
	Reservations *reservation.Store
	Reminders    Reminders
	Theme        *theme.Preference
	Location     *time.Location
}

// New wires an App from deps.
func New(deps Deps) (*App, error) {
	if deps.Reminders == nil {
		return nil, errors.New("app: reminders are required")
	}
	a := &App{
		Bus:          deps.Bus,
		Catalog:      deps.Catalog,
		Reservations: deps.Reservations,
		Reminders:    deps.Reminders,
		Theme:        deps.Theme,
		Location:     deps.Location,
	}
	if a.Bus == nil {
		a.Bus = notify.NewBus()
	}
	if a.Catalog == nil {
		a.Catalog = catalog.New(a.Bus)
	}
	if a.Reservations == nil {
		a.Reservations = reservation.New(a.Bus)
	}
	if a.Theme == nil {
		a.Theme, _ = theme.Open("", a.Bus)
	}
	if a.Location == nil {
		a.Location = time.Local
	}
	return a, nil
}

// AddEvent appends ev to the catalog, assigning an ID if it has none.
func (a *App) AddEvent(ev model.Event) model.Event {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	a.Catalog.Add(ev)
	return ev
}

// Event looks up a catalog event by ID.
func (a *App) Event(id uuid.UUID) (model.Event, bool) {
	return a.Catalog.Get(id)
}

// Reserve records the reservation and (re)schedules its reminder. The
// reservation stands even when scheduling fails; the error is only
// informational.
func (a *App) Reserve(ev model.Event) (changed bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed = a.Reservations.Reserve(ev)
	if _, _, err = a.Reminders.Schedule(ev); err != nil {
		appLog.Error("reserve: reminder not scheduled", err, "event_id", ev.ID)
	}
	return changed, err
}

// CancelReservation removes the reservation and any pending reminder.
func (a *App) CancelReservation(ev model.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.Reservations.CancelReservation(ev)
	a.Reminders.Cancel(ev)
	return changed
}

// ToggleSave flips the favorite state and returns whether ev is now saved.
func (a *App) ToggleSave(ev model.Event) bool {
	return a.Reservations.ToggleSave(ev)
}

// RemoveSaved unsaves ev if it is saved.
func (a *App) RemoveSaved(ev model.Event) bool {
	return a.Reservations.RemoveSaved(ev)
}

// List returns catalog events in date order, filtered by query.
func (a *App) List(query string) []model.Event {
	return index.Filter(a.Catalog.ByDateAscending(), query)
}

// Browse returns the filtered, day-grouped view of the catalog.
func (a *App) Browse(query string) index.Grouped {
	return index.Search(a.Catalog.ByDateAscending(), query, a.Location)
}

// OpenReminder maps an activated reminder back to its event. Malformed
// identifiers and unknown events report false.
func (a *App) OpenReminder(identifier string) (model.Event, bool) {
	id, ok := reminder.ParseIdentifier(identifier)
	if !ok {
		appLog.Debug("open reminder: ignoring malformed identifier", "identifier", identifier)
		return model.Event{}, false
	}
	ev, ok := a.Catalog.Get(id)
	if !ok {
		appLog.Debug("open reminder: unknown event", "event_id", id)
	}
	return ev, ok
}

// SignOut clears every pending reminder. Reservation state is untouched.
func (a *App) SignOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Reminders.CancelAll()
}

// ImportFeed loads one ICS source into the catalog and returns how many
// events were added.
func (a *App) ImportFeed(ctx context.Context, l FeedLoader, id, location string, rng ics.ExpandConfig) (int, error) {
	body, err := l.Load(ctx, location)
	if err != nil {
		return 0, fmt.Errorf("load feed %s: %w", id, err)
	}
	parsed, err := ics.ParseICS(id, body)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", id, err)
	}
	events, err := ics.Expand(parsed, rng)
	if err != nil {
		return 0, fmt.Errorf("expand feed %s: %w", id, err)
	}
	for _, ev := range events {
		a.Catalog.Add(ev)
	}
	appLog.Info("feed imported", "id", id, "event_count", len(events))
	return len(events), nil
}
