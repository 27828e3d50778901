// Package registry is the metadata store of audio assets per event and
// class: lifecycle status, approval status and the derived per-event
// aggregate flag.
package registry

import (
	"context"
	"fmt"

	"schooltone/core/apperr"
	"schooltone/logger"
	"schooltone/model"
	"schooltone/repository"
)

// Service implements the track/asset registry operations.
type Service struct {
	tracks repository.TrackRepository
	events repository.EventRepository
}

// NewService creates a registry service.
func NewService(tracks repository.TrackRepository, events repository.EventRepository) *Service {
	return &Service{tracks: tracks, events: events}
}

// RegisterAsset creates a new pending Track for an asset that finished
// uploading. It does not verify the object exists in storage — the ingest
// controller does that before calling here.
func (s *Service) RegisterAsset(ctx context.Context, eventID, classID int64, kind model.TrackKind, songRef, storageKey string, sizeBytes int64) (*model.Track, error) {
	if storageKey == "" {
		return nil, apperr.Validationf("storage key required to register an asset")
	}

	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFoundf("event %d", eventID)
	}

	class, err := s.events.GetClassByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class == nil || class.EventID != eventID {
		return nil, apperr.NotFoundf("class %d in event %d", classID, eventID)
	}

	track := &model.Track{
		EventID:        eventID,
		ClassID:        classID,
		Kind:           kind,
		SongRef:        songRef,
		ApprovalStatus: model.ApprovalPending,
		StorageKey:     storageKey,
		SizeBytes:      sizeBytes,
	}
	id, err := s.tracks.CreateTrack(ctx, track)
	if err != nil {
		return nil, err
	}
	track.ID = id

	logger.Info("注册新音频资产",
		logger.Int64("trackId", id),
		logger.Int64("eventId", eventID),
		logger.Int64("classId", classID),
		logger.String("kind", string(kind)))

	// A fresh pending track joins the asset-bearing set, so the aggregate
	// has to be recomputed here too.
	if _, err := s.RecomputeAggregate(ctx, eventID); err != nil {
		return nil, err
	}
	return track, nil
}

// ListTracksForEvent returns all tracks of an event.
func (s *Service) ListTracksForEvent(ctx context.Context, eventID int64) ([]*model.Track, error) {
	return s.tracks.GetTracksByEventID(ctx, eventID)
}

// ListTracksForClass returns all tracks of a class.
func (s *Service) ListTracksForClass(ctx context.Context, classID int64) ([]*model.Track, error) {
	return s.tracks.GetTracksByClassID(ctx, classID)
}

// GetTrack returns one track or ErrNotFound.
func (s *Service) GetTrack(ctx context.Context, trackID int64) (*model.Track, error) {
	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFoundf("track %d", trackID)
	}
	return track, nil
}

// SetApproval applies an admin decision to one track and recomputes the
// owning event's aggregate flag. The comment is required when rejecting and
// discarded otherwise. A track that never had an asset registered cannot be
// approved.
func (s *Service) SetApproval(ctx context.Context, trackID int64, status model.ApprovalStatus, comment string) (*model.Track, error) {
	switch status {
	case model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
	default:
		return nil, apperr.Validationf("unknown approval status %q", status)
	}
	if status == model.ApprovalRejected && comment == "" {
		return nil, apperr.Validationf("rejection of track %d requires a comment", trackID)
	}
	if status != model.ApprovalRejected {
		comment = ""
	}

	track, err := s.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if status == model.ApprovalApproved && !track.HasAsset() {
		return nil, apperr.Validationf("track %d has no registered asset", trackID)
	}

	if err := s.tracks.UpdateApproval(ctx, trackID, status, comment); err != nil {
		return nil, err
	}
	track.ApprovalStatus = status
	track.RejectionComment = comment

	if _, err := s.RecomputeAggregate(ctx, track.EventID); err != nil {
		return nil, err
	}
	return track, nil
}

// RecomputeAggregate derives allTracksApproved from a fresh read of every
// track of the event: AND over the non-rejected, asset-bearing set. A song
// that was expected but never uploaded is simply absent from that set and
// does not block approval. An event with no asset-bearing tracks at all is
// not approved.
func (s *Service) RecomputeAggregate(ctx context.Context, eventID int64) (bool, error) {
	tracks, err := s.tracks.GetTracksByEventID(ctx, eventID)
	if err != nil {
		return false, err
	}

	considered := 0
	approved := true
	for _, t := range tracks {
		if !t.HasAsset() || t.ApprovalStatus == model.ApprovalRejected {
			continue
		}
		considered++
		if t.ApprovalStatus != model.ApprovalApproved {
			approved = false
		}
	}
	if considered == 0 {
		approved = false
	}

	if err := s.events.SetAllTracksApproved(ctx, eventID, approved); err != nil {
		return false, err
	}
	return approved, nil
}

// ClassOverview pairs a class with its uploaded-track state so callers can
// surface "expected song count vs. uploaded count" instead of silently
// defaulting missing songs.
type ClassOverview struct {
	Class         *model.Class   `json:"class"`
	UploadedSongs int            `json:"uploadedSongs"`
	Tracks        []*model.Track `json:"tracks"`
}

// EventOverview lists every class of the event with its tracks and counts.
func (s *Service) EventOverview(ctx context.Context, eventID int64) ([]*ClassOverview, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFoundf("event %d", eventID)
	}

	classes, err := s.events.GetClassesByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	overview := make([]*ClassOverview, 0, len(classes))
	for _, class := range classes {
		tracks, err := s.tracks.GetTracksByClassID(ctx, class.ID)
		if err != nil {
			return nil, fmt.Errorf("overview for class %d: %w", class.ID, err)
		}
		uploaded := 0
		for _, t := range tracks {
			if t.HasAsset() && t.ApprovalStatus != model.ApprovalRejected {
				uploaded++
			}
		}
		overview = append(overview, &ClassOverview{
			Class:         class,
			UploadedSongs: uploaded,
			Tracks:        tracks,
		})
	}
	return overview, nil
}
