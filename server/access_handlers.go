package server

import (
	"net/http"

	"schooltone/logger"
)

// ClassAudioHandler resolves what the caller may retrieve for a class's
// tracks. The entitlement fact comes from the caller's token, never from
// request parameters.
func (h *APIHandler) ClassAudioHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}
	classID, err := pathInt64(r, "class_id")
	if err != nil {
		http.Error(w, "Invalid class id", http.StatusBadRequest)
		return
	}

	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	hasEntitlement := claims.HasEntitlement(eventID)

	tracks, err := h.resolver.ResolveClass(r.Context(), eventID, classID, hasEntitlement)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Info("解析班级音频访问",
		logger.Int64("eventId", eventID),
		logger.Int64("classId", classID),
		logger.Int64("userId", claims.UserID),
		logger.Bool("entitled", hasEntitlement),
		logger.Int("tracks", len(tracks)))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hasAudio": len(tracks) > 0,
		"tracks":   tracks,
	})
}

// SchoolsongAudioHandler resolves access to the event's flagship track,
// gated by the schoolsong release pipeline instead of the 7-day rule.
func (h *APIHandler) SchoolsongAudioHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "event_id")
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	decision, err := h.resolver.ResolveSchoolsong(r.Context(), eventID, claims.HasEntitlement(eventID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
