// Package reminder turns reservations into one-shot timed reminders.
//
// The Scheduler computes fire times, derives identifiers and enforces
// at-most-one pending reminder per event. Actual delivery is delegated to a
// Deliverer; CronDelivery is the local in-process implementation.
package reminder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "eventme/internal/log"
	"eventme/internal/model"
)

const (
	DefaultLead  = 30 * time.Minute
	DefaultTitle = "Upcoming Event"
)

var (
	// ErrDeliveryDisabled is returned when reminders are not permitted,
	// e.g. the user denied notification authorization.
	ErrDeliveryDisabled = errors.New("reminder delivery disabled")
	// ErrDeliveryClosed is returned after the delivery mechanism stopped.
	ErrDeliveryClosed = errors.New("reminder delivery closed")
	// ErrNoFireTime is returned for a request without a fire time.
	ErrNoFireTime = errors.New("reminder has no fire time")
)

// Deliverer is the external notification mechanism. Implementations must
// not block: Submit only enqueues.
type Deliverer interface {
	// Submit adds req, replacing any pending request with the same identifier.
	Submit(req model.ReminderRequest) error
	// Cancel drops the pending request with identifier, if any.
	Cancel(identifier string)
	// CancelAll drops every pending request.
	CancelAll()
}

// Options configures a Scheduler. Zero values select defaults.
type Options struct {
	Lead     time.Duration
	Title    string
	Location *time.Location
	Now      func() time.Time
}

// Scheduler holds no per-reminder state; the identifier is the only link to
// a submitted request.
type Scheduler struct {
	mu    sync.Mutex
	d     Deliverer
	lead  time.Duration
	title string
	loc   *time.Location
	now   func() time.Time
}

// NewScheduler returns a Scheduler submitting to d.
func NewScheduler(d Deliverer, opts Options) *Scheduler {
	s := &Scheduler{
		d:     d,
		lead:  opts.Lead,
		title: opts.Title,
		loc:   opts.Location,
		now:   opts.Now,
	}
	if s.lead <= 0 {
		s.lead = DefaultLead
	}
	if s.title == "" {
		s.title = DefaultTitle
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Schedule is ScheduleWithLead using the default lead time.
func (s *Scheduler) Schedule(ev model.Event) (model.ReminderRequest, bool, error) {
	return s.ScheduleWithLead(ev, s.lead)
}

// ScheduleWithLead submits a reminder firing lead before ev starts, replacing
// any pending one for ev. If the fire time is not in the future nothing is
// submitted and ok is false with a nil error. A delivery error is logged and
// returned; it is never retried.
func (s *Scheduler) ScheduleWithLead(ev model.Event, lead time.Duration) (req model.ReminderRequest, ok bool, err error) {
	fireAt := FireTime(ev.Date, lead, s.loc)
	if !fireAt.After(s.now()) {
		appLog.Debug("reminder skipped: fire time not in future",
			"event_id", ev.ID, "fire_at", fireAt.Format(time.RFC3339))
		return model.ReminderRequest{}, false, nil
	}

	req = model.ReminderRequest{
		Identifier: Identifier(ev.ID),
		FireAt:     fireAt,
		Title:      s.title,
		Body:       fmt.Sprintf("%s starts at %s.", ev.Title, ev.Date.In(s.loc).Format(time.Kitchen)),
	}

	s.mu.Lock()
	s.d.Cancel(req.Identifier)
	err = s.d.Submit(req)
	s.mu.Unlock()

	if err != nil {
		appLog.Error("reminder submit failed", err, "identifier", req.Identifier)
		return req, false, fmt.Errorf("schedule reminder %s: %w", req.Identifier, err)
	}
	appLog.Info("reminder scheduled", "identifier", req.Identifier, "fire_at", fireAt.Format(time.RFC3339))
	return req, true, nil
}

// Cancel drops the pending reminder for ev, if any.
func (s *Scheduler) Cancel(ev model.Event) {
	id := Identifier(ev.ID)
	s.mu.Lock()
	s.d.Cancel(id)
	s.mu.Unlock()
	appLog.Debug("reminder cancelled", "identifier", id)
}

// CancelAll drops every pending reminder regardless of origin.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.d.CancelAll()
	s.mu.Unlock()
	appLog.Info("all reminders cancelled")
}

// FireTime is start minus lead, with seconds and below zeroed in loc.
func FireTime(start time.Time, lead time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t := start.Add(-lead).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
