package server

import (
	"net/http"
	"strconv"

	"schooltone/core/approval"
	"schooltone/logger"

	"github.com/gorilla/mux"
)

// pathInt64 reads one int64 path variable.
func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// ApplyApprovalsHandler applies a batch of admin decisions to an event's
// tracks. Per-item failures are reported, never hidden behind the first one.
func (h *APIHandler) ApplyApprovalsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var req struct {
		Decisions []approval.Decision `json:"decisions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Decisions) == 0 {
		http.Error(w, "At least one decision is required", http.StatusBadRequest)
		return
	}

	logger.Info("收到批量审批请求",
		logger.Int64("eventId", eventID),
		logger.Int("decisions", len(req.Decisions)))

	result, err := h.approvals.ApplyApprovals(r.Context(), eventID, req.Decisions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// EventOverviewHandler lists an event's classes with expected vs uploaded
// song counts plus each track's approval state.
func (h *APIHandler) EventOverviewHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	overview, err := h.registry.EventOverview(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
