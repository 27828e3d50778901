package repository

import (
	"context"
	"errors"
	"fmt"

	"schooltone/model"

	"gorm.io/gorm"
)

// TrackRepository defines the interface for track data operations.
// Tracks are append-only: rejection flips a status, re-uploads create new
// rows, nothing is ever physically deleted.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	GetTracksByEventID(ctx context.Context, eventID int64) ([]*model.Track, error)
	GetTracksByClassID(ctx context.Context, classID int64) ([]*model.Track, error)
	UpdateApproval(ctx context.Context, trackID int64, status model.ApprovalStatus, comment string) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *gorm.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *gorm.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return 0, fmt.Errorf("failed to create track: %w", err)
	}
	return track.ID, nil
}

func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	track := &model.Track{}
	err := r.db.WithContext(ctx).First(track, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to query track %d: %w", id, err)
	}
	return track, nil
}

func (r *mysqlTrackRepository) GetTracksByEventID(ctx context.Context, eventID int64) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for event %d: %w", eventID, err)
	}
	return tracks, nil
}

func (r *mysqlTrackRepository) GetTracksByClassID(ctx context.Context, classID int64) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("created_at").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for class %d: %w", classID, err)
	}
	return tracks, nil
}

func (r *mysqlTrackRepository) UpdateApproval(ctx context.Context, trackID int64, status model.ApprovalStatus, comment string) error {
	err := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", trackID).
		Updates(map[string]interface{}{
			"approval_status":   status,
			"rejection_comment": comment,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update approval for track %d: %w", trackID, err)
	}
	return nil
}
