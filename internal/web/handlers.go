package web

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"eventme/internal/ics"
	"eventme/internal/index"
	"eventme/internal/model"
)

// eventView is an event plus the caller's reservation/favorite flags.
type eventView struct {
	model.Event
	Reserved bool `json:"reserved"`
	Saved    bool `json:"saved"`
}

type sectionView struct {
	Day    index.DayKey `json:"day"`
	Events []eventView  `json:"events"`
}

type groupedResponse struct {
	Query    string        `json:"query"`
	Timezone string        `json:"timezone"`
	Days     []sectionView `json:"days"`
}

type reserveResponse struct {
	Reserved bool `json:"reserved"`
	Changed  bool `json:"changed"`
	// ReminderError is set when the reservation stood but no reminder was
	// delivered.
	ReminderError string `json:"reminder_error,omitempty"`
}

type savedResponse struct {
	Saved   bool `json:"saved"`
	Changed bool `json:"changed"`
}

type themeBody struct {
	DarkMode bool `json:"dark_mode"`
}

func (s *Server) view(ev model.Event) eventView {
	return eventView{
		Event:    ev,
		Reserved: s.app.Reservations.IsReserved(ev),
		Saved:    s.app.Reservations.IsSaved(ev),
	}
}

func (s *Server) views(events []model.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, s.view(ev))
	}
	return out
}

// lookupEvent resolves the {id} path variable, writing a 4xx if it fails.
func (s *Server) lookupEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return model.Event{}, false
	}
	ev, ok := s.app.Event(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return model.Event{}, false
	}
	return ev, true
}

// GET /api/events?q=
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.app.List(r.URL.Query().Get("q"))))
}

// GET /api/events/grouped?q=
func (s *Server) handleGroupedEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	g := s.app.Browse(q)

	resp := groupedResponse{
		Query:    q,
		Timezone: s.app.Location.String(),
		Days:     make([]sectionView, 0, len(g.Days)),
	}
	for _, sec := range g.Sections() {
		resp.Days = append(resp.Days, sectionView{Day: sec.Day, Events: s.views(sec.Events)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/events
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev = s.app.AddEvent(ev)
	writeJSON(w, http.StatusCreated, s.view(ev))
}

// GET /api/events/{id}
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(ev))
}

// POST /api/events/{id}/reservation
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	changed, err := s.app.Reserve(ev)
	resp := reserveResponse{Reserved: true, Changed: changed}
	if err != nil {
		resp.ReminderError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /api/events/{id}/reservation
func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	changed := s.app.CancelReservation(ev)
	writeJSON(w, http.StatusOK, reserveResponse{Reserved: false, Changed: changed})
}

// POST /api/events/{id}/saved toggles the favorite.
func (s *Server) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	saved := s.app.ToggleSave(ev)
	writeJSON(w, http.StatusOK, savedResponse{Saved: saved, Changed: true})
}

// DELETE /api/events/{id}/saved
func (s *Server) handleRemoveSaved(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookupEvent(w, r)
	if !ok {
		return
	}
	changed := s.app.RemoveSaved(ev)
	writeJSON(w, http.StatusOK, savedResponse{Saved: false, Changed: changed})
}

func (s *Server) handleReservations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.app.Reservations.Reserved()))
}

func (s *Server) handleSaved(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.app.Reservations.Saved()))
}

// GET /api/reservations.ics
func (s *Server) handleReservationsICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.ExportCalendar(s.app.Reservations.Reserved(), s.cfg.Lead(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// GET /api/reminders
func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	pending := []model.ReminderRequest{}
	if s.pending != nil {
		pending = s.pending.Pending()
	}
	writeJSON(w, http.StatusOK, pending)
}

// DELETE /api/reminders is the sign-out reset.
func (s *Server) handleCancelAllReminders(w http.ResponseWriter, _ *http.Request) {
	s.app.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/reminders/{identifier}/open
func (s *Server) handleOpenReminder(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.app.OpenReminder(mux.Vars(r)["identifier"])
	if !ok {
		writeError(w, http.StatusNotFound, "no event for reminder")
		return
	}
	writeJSON(w, http.StatusOK, s.view(ev))
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themeBody{DarkMode: s.app.Theme.DarkMode()})
}

// PUT /api/theme. A failed save still changes the running preference.
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_ = s.app.Theme.SetDarkMode(body.DarkMode)
	writeJSON(w, http.StatusOK, themeBody{DarkMode: s.app.Theme.DarkMode()})
}
