package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "eventme/internal/log"
	"eventme/internal/model"
)

// FireFunc is invoked once when a pending reminder comes due.
type FireFunc func(model.ReminderRequest)

// DeliveryOptions configures a CronDelivery.
type DeliveryOptions struct {
	Location *time.Location
	// Disabled makes every Submit fail with ErrDeliveryDisabled.
	Disabled bool
	OnFire   FireFunc
}

// CronDelivery is an in-process Deliverer. Each pending request is a cron
// entry with a one-shot schedule.
type CronDelivery struct {
	mu       sync.Mutex
	cron     *cron.Cron
	disabled bool
	closed   bool
	pending  map[string]*pendingEntry
	onFire   FireFunc
}

type pendingEntry struct {
	req     model.ReminderRequest
	entryID cron.EntryID
}

// NewCronDelivery builds a stopped CronDelivery; call Start to begin firing.
func NewCronDelivery(opts DeliveryOptions) *CronDelivery {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &CronDelivery{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		disabled: opts.Disabled,
		pending:  make(map[string]*pendingEntry),
		onFire:   opts.OnFire,
	}
}

// Start begins firing due reminders in the background.
func (d *CronDelivery) Start() {
	d.cron.Start()
}

// Stop halts firing and rejects further submissions. The returned context
// is done once running fire callbacks have finished.
func (d *CronDelivery) Stop() context.Context {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.cron.Stop()
}

// SetDisabled toggles delivery authorization at runtime.
func (d *CronDelivery) SetDisabled(disabled bool) {
	d.mu.Lock()
	d.disabled = disabled
	d.mu.Unlock()
}

// Submit implements Deliverer.
func (d *CronDelivery) Submit(req model.ReminderRequest) error {
	if req.FireAt.IsZero() {
		return ErrNoFireTime
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrDeliveryClosed
	case d.disabled:
		return ErrDeliveryDisabled
	}

	d.removeLocked(req.Identifier)
	entry := &pendingEntry{req: req}
	entry.entryID = d.cron.Schedule(onceAt(req.FireAt), cron.FuncJob(func() { d.fire(entry) }))
	d.pending[req.Identifier] = entry
	return nil
}

// Cancel implements Deliverer.
func (d *CronDelivery) Cancel(identifier string) {
	d.mu.Lock()
	d.removeLocked(identifier)
	d.mu.Unlock()
}

// CancelAll implements Deliverer.
func (d *CronDelivery) CancelAll() {
	d.mu.Lock()
	for id := range d.pending {
		d.removeLocked(id)
	}
	d.mu.Unlock()
}

// Pending lists requests not yet fired, earliest first.
func (d *CronDelivery) Pending() []model.ReminderRequest {
	d.mu.Lock()
	out := make([]model.ReminderRequest, 0, len(d.pending))
	for _, e := range d.pending {
		out = append(out, e.req)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].Identifier < out[j].Identifier
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Lookup returns the pending request for identifier.
func (d *CronDelivery) Lookup(identifier string) (model.ReminderRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[identifier]
	if !ok {
		return model.ReminderRequest{}, false
	}
	return e.req, true
}

func (d *CronDelivery) removeLocked(identifier string) {
	e, ok := d.pending[identifier]
	if !ok {
		return
	}
	d.cron.Remove(e.entryID)
	delete(d.pending, identifier)
}

// fire runs on a cron goroutine. A replaced or cancelled entry is ignored.
func (d *CronDelivery) fire(entry *pendingEntry) {
	d.mu.Lock()
	if d.pending[entry.req.Identifier] != entry {
		d.mu.Unlock()
		return
	}
	delete(d.pending, entry.req.Identifier)
	d.cron.Remove(entry.entryID)
	onFire := d.onFire
	d.mu.Unlock()

	appLog.Info("reminder fired", "identifier", entry.req.Identifier, "fire_at", entry.req.FireAt.Format(time.RFC3339))
	if onFire != nil {
		onFire(entry.req)
	}
}

// onceAt is a cron.Schedule that yields a single activation. The zero time
// means "never again" to cron.
type onceAt time.Time

func (o onceAt) Next(t time.Time) time.Time {
	at := time.Time(o)
	if t.Before(at) {
		return at
	}
	return time.Time{}
}

// cronLogger routes cron's internal logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
