package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventme/internal/model"
	"eventme/internal/reminder"
)

// defaultDuration is the DTEND offset for exported events, which only carry
// a start time.
const defaultDuration = time.Hour

// ExportCalendar renders events as an ICS feed. Each VEVENT carries a
// DISPLAY alarm lead before its start and uses the event ID as UID.
func ExportCalendar(events []model.Event, lead time.Duration, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//eventme//reservations//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID.String())
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(ev.Date.UTC())
		ve.SetEndAt(ev.Date.Add(defaultDuration).UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Host != "" {
			ve.SetProperty(ical.ComponentPropertyOrganizer, "mailto:noreply@eventme.invalid", ical.WithCN(ev.Host))
		}
		if ev.Latitude != 0 || ev.Longitude != 0 {
			ve.SetProperty(ical.ComponentPropertyGeo, fmt.Sprintf("%f;%f", ev.Latitude, ev.Longitude))
		}
		if ev.ImageName != "" {
			ve.SetProperty(propImage, ev.ImageName)
		}

		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", int(lead/time.Minute)))
		alarm.SetProperty(ical.ComponentPropertyDescription, reminder.Identifier(ev.ID))
	}

	return cal.Serialize()
}
