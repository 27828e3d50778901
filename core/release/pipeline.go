// Package release implements the schoolsong dual-approval pipeline: an
// independent teacher sign-off, an admin decision with override, and the
// scheduled-vs-instant release timing rule.
package release

import (
	"context"
	"time"

	"schooltone/core/apperr"
	"schooltone/logger"
	"schooltone/model"
	"schooltone/repository"
)

// releaseHour 定时发布的目标小时（当地时间）
const releaseHour = 7

// Pipeline drives the schoolsong release state machine. All mutations
// re-check the observed precondition at write time; a lost race surfaces as
// ErrConflictingState instead of silently overwriting.
type Pipeline struct {
	releases repository.ReleaseRepository
	events   repository.EventRepository
	loc      *time.Location
	now      func() time.Time
}

// NewPipeline creates a release pipeline. loc is the timezone the scheduled
// 07:00 release is computed in.
func NewPipeline(releases repository.ReleaseRepository, events repository.EventRepository, loc *time.Location) *Pipeline {
	return &Pipeline{
		releases: releases,
		events:   events,
		loc:      loc,
		now:      time.Now,
	}
}

func boolPtr(b bool) *bool { return &b }

// Get returns the release record for an event, or ErrNotFound when the
// event has no schoolsong.
func (p *Pipeline) Get(ctx context.Context, eventID int64) (*model.SchoolsongRelease, error) {
	rel, err := p.releases.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, apperr.NotFoundf("schoolsong release for event %d", eventID)
	}
	return rel, nil
}

// TeacherApprove records teacher sign-off. Legal only while the admin
// decision is pending; approving twice is a no-op returning current state,
// because teachers do click twice.
func (p *Pipeline) TeacherApprove(ctx context.Context, eventID int64) (*model.SchoolsongRelease, error) {
	rel, err := p.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rel.AdminApprovalStatus != model.ApprovalPending {
		return nil, apperr.Conflictf("schoolsong for event %d is %s, teacher approval not applicable",
			eventID, rel.AdminApprovalStatus)
	}
	if rel.TeacherApprovedAt != nil {
		return rel, nil // idempotent
	}

	now := p.now()
	err = p.releases.UpdateGuarded(ctx, eventID,
		repository.ReleaseGuard{
			AdminApprovalStatus: model.ApprovalPending,
			TeacherApproved:     boolPtr(false),
		},
		map[string]interface{}{"teacher_approved_at": now})
	if err != nil {
		return nil, err
	}

	logger.Info("教师确认校歌", logger.Int64("eventId", eventID))
	return p.Get(ctx, eventID)
}

// AdminApprove commits the admin decision. Legal from AwaitingAdmin, or
// directly from AwaitingTeacher as an override. Instant mode releases now;
// scheduled mode releases at the next 07:00 strictly after now.
func (p *Pipeline) AdminApprove(ctx context.Context, eventID int64, mode model.ReleaseMode) (*model.SchoolsongRelease, error) {
	if mode != model.ReleaseScheduled && mode != model.ReleaseInstant {
		return nil, apperr.Validationf("unknown release mode %q", mode)
	}

	rel, err := p.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rel.AdminApprovalStatus != model.ApprovalPending {
		return nil, apperr.Conflictf("schoolsong for event %d already %s", eventID, rel.AdminApprovalStatus)
	}

	now := p.now()
	releasedAt := now
	if mode == model.ReleaseScheduled {
		releasedAt = nextReleaseInstant(now.In(p.loc))
	}

	err = p.releases.UpdateGuarded(ctx, eventID,
		repository.ReleaseGuard{AdminApprovalStatus: model.ApprovalPending},
		map[string]interface{}{
			"admin_approval_status": model.ApprovalApproved,
			"release_mode":          mode,
			"released_at":           releasedAt,
			"rejection_comment":     "",
		})
	if err != nil {
		return nil, err
	}

	logger.Info("管理员批准校歌发布",
		logger.Int64("eventId", eventID),
		logger.String("mode", string(mode)),
		logger.Time("releasedAt", releasedAt),
		logger.Bool("override", rel.TeacherApprovedAt == nil))
	return p.Get(ctx, eventID)
}

// AdminReject rejects the schoolsong from any state that is not yet publicly
// released. It clears both timestamps wholesale so no stale approval survives
// a rejection-and-redo cycle.
func (p *Pipeline) AdminReject(ctx context.Context, eventID int64, comment string) (*model.SchoolsongRelease, error) {
	rel, err := p.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rel.IsReleasedAt(p.now()) {
		return nil, apperr.Conflictf("schoolsong for event %d is already public", eventID)
	}

	err = p.releases.UpdateGuarded(ctx, eventID,
		repository.ReleaseGuard{AdminApprovalStatus: rel.AdminApprovalStatus},
		map[string]interface{}{
			"admin_approval_status": model.ApprovalRejected,
			"rejection_comment":     comment,
			"teacher_approved_at":   nil,
			"released_at":           nil,
			"release_mode":          "",
		})
	if err != nil {
		return nil, err
	}

	logger.Info("管理员驳回校歌", logger.Int64("eventId", eventID), logger.String("comment", comment))
	return p.Get(ctx, eventID)
}

// HandleNewUpload resets the release record to AwaitingTeacher when a new
// upload matches the event's schoolsong ref. A first-time upload creates the
// record. An already public release is left untouched.
func (p *Pipeline) HandleNewUpload(ctx context.Context, eventID int64, songRef string, trackID int64) error {
	if songRef == "" {
		return nil
	}
	event, err := p.events.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil || event.SchoolsongRef == "" || event.SchoolsongRef != songRef {
		return nil
	}

	rel, err := p.releases.GetByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if rel == nil {
		return p.releases.Create(ctx, &model.SchoolsongRelease{
			EventID:             eventID,
			SchoolsongTrackID:   trackID,
			AdminApprovalStatus: model.ApprovalPending,
		})
	}
	if rel.IsReleasedAt(p.now()) {
		logger.Warn("校歌已公开发布，忽略新上传的重置",
			logger.Int64("eventId", eventID),
			logger.Int64("trackId", trackID))
		return nil
	}

	err = p.releases.UpdateGuarded(ctx, eventID,
		repository.ReleaseGuard{AdminApprovalStatus: rel.AdminApprovalStatus},
		map[string]interface{}{
			"schoolsong_track_id":   trackID,
			"admin_approval_status": model.ApprovalPending,
			"rejection_comment":     "",
			"teacher_approved_at":   nil,
			"released_at":           nil,
			"release_mode":          "",
		})
	if err != nil {
		return err
	}

	logger.Info("校歌重新上传，审批流程重置",
		logger.Int64("eventId", eventID),
		logger.Int64("trackId", trackID))
	return nil
}

// IsReleased reports whether the event's schoolsong is publicly visible.
// Events without a schoolsong record report false.
func (p *Pipeline) IsReleased(ctx context.Context, eventID int64) (bool, error) {
	rel, err := p.releases.GetByEventID(ctx, eventID)
	if err != nil {
		return false, err
	}
	if rel == nil {
		return false, nil
	}
	return rel.IsReleasedAt(p.now()), nil
}

// nextReleaseInstant finds the next 07:00 strictly after now. Approving at
// exactly 07:00:00 schedules for the following day — the release must never
// land in the past or the present instant.
func nextReleaseInstant(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), releaseHour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
