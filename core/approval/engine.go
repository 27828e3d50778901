// Package approval applies admin approve/reject decisions to tracks in
// batches and reports the recomputed per-event aggregate.
package approval

import (
	"context"

	"schooltone/core/registry"
	"schooltone/logger"
	"schooltone/model"
)

// Decision is one admin verdict on one track.
type Decision struct {
	TrackID int64                `json:"trackId"`
	Status  model.ApprovalStatus `json:"status"`
	Comment string               `json:"comment,omitempty"`
}

// ItemResult is the outcome of one decision. Tracks are independent, so a
// failure on one never hides the rest.
type ItemResult struct {
	TrackID int64  `json:"trackId"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// BatchResult carries per-item outcomes plus the fresh aggregate so the
// caller can trigger any "event fully approved" follow-on action.
type BatchResult struct {
	Items             []ItemResult `json:"items"`
	AllTracksApproved bool         `json:"allTracksApproved"`
}

// Engine applies approval decisions through the registry.
type Engine struct {
	registry *registry.Service
}

// NewEngine creates an approval engine.
func NewEngine(reg *registry.Service) *Engine {
	return &Engine{registry: reg}
}

// ApplyApprovals applies every decision, accumulating per-item failures
// instead of short-circuiting, then recomputes the event aggregate once more
// from a fresh read.
func (e *Engine) ApplyApprovals(ctx context.Context, eventID int64, decisions []Decision) (*BatchResult, error) {
	result := &BatchResult{Items: make([]ItemResult, 0, len(decisions))}

	for _, d := range decisions {
		item := ItemResult{TrackID: d.TrackID, OK: true}
		if _, err := e.registry.SetApproval(ctx, d.TrackID, d.Status, d.Comment); err != nil {
			item.OK = false
			item.Error = err.Error()
			logger.Warn("审批决定执行失败",
				logger.Int64("trackId", d.TrackID),
				logger.String("status", string(d.Status)),
				logger.ErrorField(err))
		}
		result.Items = append(result.Items, item)
	}

	approved, err := e.registry.RecomputeAggregate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	result.AllTracksApproved = approved

	logger.Info("批量审批完成",
		logger.Int64("eventId", eventID),
		logger.Int("decisions", len(decisions)),
		logger.Bool("allTracksApproved", approved))
	return result, nil
}
