package repository

import (
	"context"
	"errors"
	"fmt"

	"schooltone/model"

	"gorm.io/gorm"
)

// EventRepository defines the interface for event and class data operations.
// Events and classes are written by the external booking collaborator; this
// core mutates only the derived aggregate flag.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	SetAllTracksApproved(ctx context.Context, eventID int64, approved bool) error
	CreateClass(ctx context.Context, class *model.Class) error
	GetClassByID(ctx context.Context, id int64) (*model.Class, error)
	GetClassesByEventID(ctx context.Context, eventID int64) ([]*model.Class, error)
}

// mysqlEventRepository implements EventRepository for MySQL.
type mysqlEventRepository struct {
	db *gorm.DB
}

// NewMySQLEventRepository creates a new instance of mysqlEventRepository.
func NewMySQLEventRepository(db *gorm.DB) EventRepository {
	return &mysqlEventRepository{db: db}
}

func (r *mysqlEventRepository) CreateEvent(ctx context.Context, event *model.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *mysqlEventRepository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	event := &model.Event{}
	err := r.db.WithContext(ctx).First(event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Event not found
		}
		return nil, fmt.Errorf("failed to query event %d: %w", id, err)
	}
	return event, nil
}

func (r *mysqlEventRepository) SetAllTracksApproved(ctx context.Context, eventID int64, approved bool) error {
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ?", eventID).
		Update("all_tracks_approved", approved).Error
	if err != nil {
		return fmt.Errorf("failed to update aggregate flag for event %d: %w", eventID, err)
	}
	return nil
}

func (r *mysqlEventRepository) CreateClass(ctx context.Context, class *model.Class) error {
	if err := r.db.WithContext(ctx).Create(class).Error; err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

func (r *mysqlEventRepository) GetClassByID(ctx context.Context, id int64) (*model.Class, error) {
	class := &model.Class{}
	err := r.db.WithContext(ctx).First(class, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Class not found
		}
		return nil, fmt.Errorf("failed to query class %d: %w", id, err)
	}
	return class, nil
}

func (r *mysqlEventRepository) GetClassesByEventID(ctx context.Context, eventID int64) ([]*model.Class, error) {
	classes := make([]*model.Class, 0)
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id").
		Find(&classes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query classes for event %d: %w", eventID, err)
	}
	return classes, nil
}
