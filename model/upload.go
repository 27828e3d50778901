package model

import "time"

// UploadState 上传会话状态
type UploadState string

const (
	UploadInitiated UploadState = "initiated"
	UploadCompleted UploadState = "completed"
	UploadAborted   UploadState = "aborted"
)

// UploadSession records one chunked upload of a large asset. Sessions live
// in Redis for the duration of the upload; completed and aborted sessions
// are terminal and never reused.
type UploadSession struct {
	UploadID       string      `json:"uploadId"`
	EventID        int64       `json:"eventId"`
	ClassID        int64       `json:"classId"`
	Kind           TrackKind   `json:"kind"`
	SongRef        string      `json:"songRef,omitempty"`
	Filename       string      `json:"filename"`
	StorageKey     string      `json:"storageKey"`
	TotalSizeBytes int64       `json:"totalSizeBytes"`
	PartSizeBytes  int64       `json:"partSizeBytes"`
	TotalParts     int         `json:"totalParts"`
	State          UploadState `json:"state"`
	CreatedAt      time.Time   `json:"createdAt"`
}
