package server

import (
	"net/http"

	"schooltone/core/ingest"
	"schooltone/logger"
	"schooltone/storage"

	"github.com/gorilla/mux"
)

// BeginUploadHandler opens a chunked upload session and returns the
// presigned part URLs plus the fixed part size.
func (h *APIHandler) BeginUploadHandler(w http.ResponseWriter, r *http.Request) {
	var req ingest.BeginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.ingest.Begin(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// CompleteUploadHandler assembles the uploaded parts and registers the
// resulting asset.
func (h *APIHandler) CompleteUploadHandler(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["upload_id"]

	var req struct {
		StorageKey string         `json:"storageKey"`
		Parts      []storage.Part `json:"parts"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	track, err := h.ingest.Complete(r.Context(), uploadID, req.StorageKey, req.Parts)
	if err != nil {
		logger.Warn("完成上传失败",
			logger.String("uploadId", uploadID),
			logger.ErrorField(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// AbortUploadHandler releases the storage of a session. Safe to repeat.
func (h *APIHandler) AbortUploadHandler(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["upload_id"]

	var req struct {
		StorageKey string `json:"storageKey"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.ingest.Abort(r.Context(), uploadID, req.StorageKey); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
