package ics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "eventme/internal/log"
	"eventme/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// eventNamespace scopes the name-based UUIDs of imported events.
var eventNamespace = uuid.MustParse("6f0c3c1e-5a3d-4d38-9a64-2f3b8f1c7e21")

// ExpandConfig controls how imported events become catalog events.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences of recurring events.
	// A non-recurring event is dropped if it starts before RangeStart and
	// kept when it falls after RangeEnd.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero selects the default.
	MaxOccurrencesPerEvent int
}

// Expand converts parsed VEVENTs into catalog events. Every occurrence of a
// recurring VEVENT is a distinct event. IDs are derived from the UID and
// start time, so re-importing the same feed yields the same IDs.
func Expand(parsed []ParsedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Event, 0, len(parsed))
	for _, pe := range parsed {
		if pe.RawRRule == "" {
			if pe.Start.Before(cfg.RangeStart) {
				continue
			}
			out = append(out, toEvent(pe, pe.Start))
			continue
		}

		starts, err := occurrences(pe, cfg)
		if err != nil {
			appLog.Error("expand: failed to parse RRULE", err, "uid", pe.UID, "rrule", pe.RawRRule)
			continue
		}
		for _, s := range starts {
			out = append(out, toEvent(pe, s))
		}
	}
	return out, nil
}

func occurrences(pe ParsedEvent, cfg ExpandConfig) ([]time.Time, error) {
	r, err := rrule.StrToRRule(pe.RawRRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(pe.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range pe.ExDates {
		set.ExDate(ex.In(pe.Start.Location()))
	}

	loc := pe.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		appLog.Error("expand: truncated occurrences for UID due to cap",
			errors.New("max occurrences reached"),
			"uid", pe.UID,
			"cap", cfg.MaxOccurrencesPerEvent,
		)
		starts = starts[:cfg.MaxOccurrencesPerEvent]
	}
	return starts, nil
}

func toEvent(pe ParsedEvent, start time.Time) model.Event {
	return model.Event{
		ID:          instanceID(pe.UID, start),
		Title:       pe.Summary,
		Description: pe.Description,
		Host:        pe.Host,
		Location:    pe.Location,
		Latitude:    pe.Latitude,
		Longitude:   pe.Longitude,
		Date:        start,
		ImageName:   pe.ImageName,
	}
}

// instanceID is a UUIDv5 over UID and the UTC start instant.
func instanceID(uid string, start time.Time) uuid.UUID {
	return uuid.NewSHA1(eventNamespace, []byte(uid+"|"+start.UTC().Format(time.RFC3339)))
}
