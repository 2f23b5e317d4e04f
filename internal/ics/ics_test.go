package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"eventme/internal/model"
	"eventme/internal/reminder"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250310T180000Z\r\n" +
	"SUMMARY:Café Night\r\n" +
	"DESCRIPTION:Coffee and chat\r\n" +
	"LOCATION:Main St\r\n" +
	"ORGANIZER;CN=Bean Co.:mailto:bean@example.com\r\n" +
	"GEO:37.5;-122.25\r\n" +
	"X-IMAGE:cafe\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250303T090000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=10\r\n" +
	"EXDATE:20250310T090000Z\r\n" +
	"SUMMARY:Run club\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20250303T090000Z\r\n" +
	"SUMMARY:No uid\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events, err := ParseICS("test", []byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (one skipped), got %d", len(events))
	}

	single := events[0]
	if single.Summary != "Café Night" || single.Host != "Bean Co." || single.Location != "Main St" {
		t.Fatalf("unexpected fields: %+v", single)
	}
	if single.Latitude != 37.5 || single.Longitude != -122.25 || single.ImageName != "cafe" {
		t.Fatalf("unexpected geo/image: %+v", single)
	}
	if !single.Start.Equal(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("start %v", single.Start)
	}

	weekly := events[1]
	if weekly.RawRRule == "" || len(weekly.ExDates) != 1 {
		t.Fatalf("recurrence not captured: %+v", weekly)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS("x", nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExpand(t *testing.T) {
	parsed, err := ParseICS("test", []byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	cfg := ExpandConfig{
		RangeStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	events, err := Expand(parsed, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Mar 3, 17 and 24 fall in range; Mar 10 is excluded by EXDATE.
	var runs []model.Event
	for _, ev := range events {
		if ev.Title == "Run club" {
			runs = append(runs, ev)
		}
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 run club occurrences, got %d", len(runs))
	}
	seen := map[uuid.UUID]bool{}
	for _, ev := range events {
		if seen[ev.ID] {
			t.Fatalf("duplicate id %v", ev.ID)
		}
		seen[ev.ID] = true
		if ev.Date.Equal(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)) {
			t.Fatal("EXDATE occurrence was not removed")
		}
	}

	again, _ := Expand(parsed, cfg)
	for i := range events {
		if events[i].ID != again[i].ID {
			t.Fatal("ids are not stable across expansions")
		}
	}
}

func TestExpandDropsPastSingleEvents(t *testing.T) {
	parsed, err := ParseICS("test", []byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	// Café Night is on Mar 10; run club continues weekly into May.
	events, err := Expand(parsed, ExpandConfig{
		RangeStart: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if ev.Title == "Café Night" {
			t.Fatal("single event before RangeStart was imported")
		}
		if ev.Date.Before(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("occurrence %v is before the range", ev.Date)
		}
	}
	if len(events) != 2 {
		t.Fatalf("expected Mar 17 and 24 run club only, got %d", len(events))
	}

	later, err := Expand(parsed, ExpandConfig{
		RangeStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ev := range later {
		found = found || ev.Title == "Café Night"
	}
	if !found {
		t.Fatal("upcoming single event past RangeEnd should be kept")
	}
}

func TestExpandBadRange(t *testing.T) {
	now := time.Now()
	if _, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected range error")
	}
}

func TestExportCalendarRoundTrip(t *testing.T) {
	ev := model.Event{
		ID:          uuid.New(),
		Title:       "Pop-up Concert",
		Description: "Indie bands",
		Host:        "Music Co.",
		Location:    "Downtown Stage",
		Latitude:    37.7793,
		Longitude:   -122.4182,
		Date:        time.Date(2025, 4, 1, 19, 0, 0, 0, time.UTC),
	}

	out := ExportCalendar([]model.Event{ev}, 30*time.Minute, time.Now())
	if !strings.Contains(out, "TRIGGER:-PT30M") {
		t.Fatalf("missing alarm trigger:\n%s", out)
	}
	if !strings.Contains(out, reminder.Identifier(ev.ID)) {
		t.Fatalf("missing reminder identifier:\n%s", out)
	}

	parsed, err := ParseICS("export", []byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(parsed))
	}
	got := parsed[0]
	if got.UID != ev.ID.String() || got.Summary != ev.Title || got.Host != ev.Host {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Start.Equal(ev.Date) {
		t.Fatalf("start %v, want %v", got.Start, ev.Date)
	}
}

func TestLoaderFileAndHTTP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.ics")
	if err := os.WriteFile(path, []byte(feed), 0o600); err != nil {
		t.Fatal(err)
	}
	l := NewLoader()

	body, err := l.Load(context.Background(), path)
	if err != nil || string(body) != feed {
		t.Fatalf("file load: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.ics" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	body, err = l.Load(context.Background(), srv.URL+"/feed.ics")
	if err != nil || string(body) != feed {
		t.Fatalf("http load: %v", err)
	}
	if _, err := l.Load(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := l.Load(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty location")
	}
}

func TestLoaderRejectsOversizedFeed(t *testing.T) {
	l := NewLoader()
	l.maxSize = int64(len(feed)) - 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	if _, err := l.Load(context.Background(), srv.URL); !errors.Is(err, ErrFeedTooLarge) {
		t.Fatalf("http load: got %v, want ErrFeedTooLarge", err)
	}

	path := filepath.Join(t.TempDir(), "feed.ics")
	if err := os.WriteFile(path, []byte(feed), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load(context.Background(), path); !errors.Is(err, ErrFeedTooLarge) {
		t.Fatalf("file load: got %v, want ErrFeedTooLarge", err)
	}

	l.maxSize = int64(len(feed))
	if body, err := l.Load(context.Background(), path); err != nil || string(body) != feed {
		t.Fatalf("feed at exactly the limit: %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.com/private/abc.ics?token=1"); got != "https://cal.example.com/...(redacted)" {
		t.Fatalf("got %q", got)
	}
	if got := redactURL("nope"); got != "ics://...(redacted)" {
		t.Fatalf("got %q", got)
	}
}
