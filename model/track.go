package model

import "time"

// TrackKind 曲目类型
type TrackKind string

const (
	KindFinalMix          TrackKind = "final_mix"
	KindProductionArchive TrackKind = "production_archive"
)

// ApprovalStatus 审批状态
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Track represents one approvable unit of audio tied to a class within an
// event. A track with no storage key has no registered asset and stays
// pending; rejection is a status, never a deletion — a re-upload creates a
// new Track and leaves history intact.
type Track struct {
	ID      int64     `json:"id" gorm:"primaryKey"`
	EventID int64     `json:"eventId" gorm:"index"`
	ClassID int64     `json:"classId" gorm:"index"`
	Kind    TrackKind `json:"kind" gorm:"size:32"`
	// SongRef is the optional logical song identifier. The event's
	// schoolsong is matched through it.
	SongRef          string         `json:"songRef,omitempty" gorm:"size:64"`
	ApprovalStatus   ApprovalStatus `json:"approvalStatus" gorm:"size:16;default:pending"`
	RejectionComment string         `json:"rejectionComment,omitempty" gorm:"size:512"`
	StorageKey       string         `json:"-" gorm:"size:512"` // object store key, not exposed in API
	SizeBytes        int64          `json:"sizeBytes"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// HasAsset reports whether an object was ever registered for this track.
func (t *Track) HasAsset() bool {
	return t.StorageKey != ""
}
