package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single listed event. Identity is the ID alone: two events with
// the same title and date but different IDs are distinct everywhere.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Host        string    `json:"host"`
	Location    string    `json:"location_name"`

	// Coordinates are carried for display only; ranges are not validated.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Date is the event start.
	Date time.Time `json:"date"`

	ImageName string `json:"image_name"`
}

// Same reports whether e and other refer to the same event.
func (e Event) Same(other Event) bool {
	return e.ID == other.ID
}

// ReminderRequest is a one-shot, time-triggered notification handed to a
// delivery mechanism. Only Identifier is used for later cancel/replace.
type ReminderRequest struct {
	Identifier string    `json:"identifier"`
	FireAt     time.Time `json:"fire_at"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
}
