package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"schooltone/config"
	"schooltone/core/access"
	"schooltone/core/apperr"
	"schooltone/core/approval"
	"schooltone/core/ingest"
	"schooltone/core/registry"
	"schooltone/core/release"
	"schooltone/logger"
	"schooltone/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	eventRepo repository.EventRepository
	registry  *registry.Service
	approvals *approval.Engine
	releases  *release.Pipeline
	resolver  *access.Resolver
	ingest    *ingest.Controller
	cfg       *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	eventRepo repository.EventRepository,
	reg *registry.Service,
	approvals *approval.Engine,
	releases *release.Pipeline,
	resolver *access.Resolver,
	ingestCtrl *ingest.Controller,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		eventRepo: eventRepo,
		registry:  reg,
		approvals: approvals,
		releases:  releases,
		resolver:  resolver,
		ingest:    ingestCtrl,
		cfg:       cfg,
	}
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("写入响应失败", logger.ErrorField(err))
	}
}

// writeError 按错误分类映射HTTP状态码
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrConflictingState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, apperr.ErrIntegrityMismatch):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, apperr.ErrStorageUnavailable):
		http.Error(w, "Storage temporarily unavailable, please retry", http.StatusServiceUnavailable)
	default:
		logger.Error("内部错误", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeBody 解析JSON请求体
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("解析请求体失败", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
