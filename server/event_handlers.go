package server

import (
	"net/http"
	"time"

	"schooltone/model"
)

// CreateEventHandler ingests an event record from the booking collaborator.
// The booking-system mapping itself lives outside this service; this is the
// minimal write path that makes the core runnable end to end.
func (h *APIHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID            int64  `json:"id"`
		Date          string `json:"date"` // RFC 3339
		SchoolsongRef string `json:"schoolsongRef"`
		Classes       []struct {
			ID            int64  `json:"id"`
			Name          string `json:"name"`
			ExpectedSongs int    `json:"expectedSongs"`
		} `json:"classes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected RFC 3339", http.StatusBadRequest)
		return
	}

	event := &model.Event{
		ID:            req.ID,
		Date:          date,
		SchoolsongRef: req.SchoolsongRef,
	}
	if err := h.eventRepo.CreateEvent(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	for _, c := range req.Classes {
		class := &model.Class{
			ID:            c.ID,
			EventID:       event.ID,
			Name:          c.Name,
			ExpectedSongs: c.ExpectedSongs,
		}
		if err := h.eventRepo.CreateClass(r.Context(), class); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, event)
}
