package server

import (
	"net/http"

	"schooltone/model"
)

// TeacherApproveHandler records teacher sign-off on the schoolsong.
func (h *APIHandler) TeacherApproveHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	rel, err := h.releases.TeacherApprove(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// AdminApproveHandler commits the admin release decision, scheduled or
// instant.
func (h *APIHandler) AdminApproveHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var req struct {
		Mode model.ReleaseMode `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rel, err := h.releases.AdminApprove(r.Context(), eventID, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// AdminRejectHandler rejects the schoolsong; a fresh upload is required to
// restart the flow.
func (h *APIHandler) AdminRejectHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rel, err := h.releases.AdminReject(r.Context(), eventID, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// SchoolsongStatusHandler returns the current release record.
func (h *APIHandler) SchoolsongStatusHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	rel, err := h.releases.Get(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}
