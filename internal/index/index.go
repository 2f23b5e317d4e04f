// Package index derives the day-bucketed, searchable view of a set of events.
// Nothing here is cached; callers recompute on every change.
package index

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"eventme/internal/model"
)

// Grouped maps each calendar day to its events, sorted by start time, and
// lists the days in calendar order.
type Grouped struct {
	Days    []DayKey
	Buckets map[DayKey][]model.Event
}

// Section is one day and its events, in display order.
type Section struct {
	Day    DayKey        `json:"day"`
	Events []model.Event `json:"events"`
}

// Sections flattens g into ordered (day, events) pairs.
func (g Grouped) Sections() []Section {
	out := make([]Section, 0, len(g.Days))
	for _, d := range g.Days {
		out = append(out, Section{Day: d, Events: g.Buckets[d]})
	}
	return out
}

// Len reports the total number of events across all buckets.
func (g Grouped) Len() int {
	n := 0
	for _, evs := range g.Buckets {
		n += len(evs)
	}
	return n
}

// Group buckets events by calendar day in loc (nil means each event's own
// location). Within a bucket events are ordered by date; ties keep input order.
func Group(events []model.Event, loc *time.Location) Grouped {
	g := Grouped{Buckets: make(map[DayKey][]model.Event)}
	for _, ev := range events {
		k := KeyOf(ev.Date, loc)
		if _, ok := g.Buckets[k]; !ok {
			g.Days = append(g.Days, k)
		}
		g.Buckets[k] = append(g.Buckets[k], ev)
	}

	for _, k := range g.Days {
		bucket := g.Buckets[k]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Date.Before(bucket[j].Date)
		})
	}
	sort.Slice(g.Days, func(i, j int) bool {
		return g.Days[i].Before(g.Days[j])
	})
	return g
}

// Filter returns the events whose title contains query, ignoring case and
// diacritics. A blank query returns events unchanged.
func Filter(events []model.Event, query string) []model.Event {
	q := strings.TrimSpace(query)
	if q == "" {
		return events
	}
	needle := fold(q)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if strings.Contains(fold(ev.Title), needle) {
			out = append(out, ev)
		}
	}
	return out
}

// Search filters by query and then groups the result.
func Search(events []model.Event, query string, loc *time.Location) Grouped {
	return Group(Filter(events, query), loc)
}

// fold strips combining marks and case-folds s. Transformers are stateful,
// so a fresh chain is built per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
