package model

import "time"

// ReleaseMode 发布模式
type ReleaseMode string

const (
	ReleaseScheduled ReleaseMode = "scheduled"
	ReleaseInstant   ReleaseMode = "instant"
)

// SchoolsongRelease tracks the stricter two-party approval flow of the one
// flagship track per event. ReleasedAt is set only as a side effect of an
// admin approval — teacher approval alone never sets it.
type SchoolsongRelease struct {
	ID      int64 `json:"id" gorm:"primaryKey"`
	EventID int64 `json:"eventId" gorm:"uniqueIndex"`
	// SchoolsongTrackID points at the currently uploaded schoolsong track.
	SchoolsongTrackID   int64          `json:"schoolsongTrackId"`
	TeacherApprovedAt   *time.Time     `json:"teacherApprovedAt,omitempty"`
	AdminApprovalStatus ApprovalStatus `json:"adminApprovalStatus" gorm:"size:16;default:pending"`
	RejectionComment    string         `json:"rejectionComment,omitempty" gorm:"size:512"`
	ReleaseMode         ReleaseMode    `json:"releaseMode,omitempty" gorm:"size:16"`
	ReleasedAt          *time.Time     `json:"releasedAt,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// IsReleasedAt reports whether the schoolsong is publicly visible at the
// given instant.
func (r *SchoolsongRelease) IsReleasedAt(now time.Time) bool {
	return r.AdminApprovalStatus == ApprovalApproved &&
		r.ReleasedAt != nil && !r.ReleasedAt.After(now)
}
