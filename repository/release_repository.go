package repository

import (
	"context"
	"errors"
	"fmt"

	"schooltone/core/apperr"
	"schooltone/model"

	"gorm.io/gorm"
)

// ReleaseGuard is the precondition snapshot for a compare-and-set update of
// a schoolsong release record. The update applies only while the stored row
// still matches; otherwise the caller lost a race and gets ErrConflictingState.
type ReleaseGuard struct {
	AdminApprovalStatus model.ApprovalStatus
	TeacherApproved     *bool // nil = don't care
	Released            *bool // nil = don't care
}

// ReleaseRepository defines the interface for schoolsong release records.
type ReleaseRepository interface {
	Create(ctx context.Context, release *model.SchoolsongRelease) error
	GetByEventID(ctx context.Context, eventID int64) (*model.SchoolsongRelease, error)
	// UpdateGuarded mutates the record only while it still matches the guard.
	UpdateGuarded(ctx context.Context, eventID int64, guard ReleaseGuard, updates map[string]interface{}) error
}

// mysqlReleaseRepository implements ReleaseRepository for MySQL.
type mysqlReleaseRepository struct {
	db *gorm.DB
}

// NewMySQLReleaseRepository creates a new instance of mysqlReleaseRepository.
func NewMySQLReleaseRepository(db *gorm.DB) ReleaseRepository {
	return &mysqlReleaseRepository{db: db}
}

func (r *mysqlReleaseRepository) Create(ctx context.Context, release *model.SchoolsongRelease) error {
	if err := r.db.WithContext(ctx).Create(release).Error; err != nil {
		return fmt.Errorf("failed to create schoolsong release: %w", err)
	}
	return nil
}

func (r *mysqlReleaseRepository) GetByEventID(ctx context.Context, eventID int64) (*model.SchoolsongRelease, error) {
	release := &model.SchoolsongRelease{}
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(release).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No schoolsong for this event
		}
		return nil, fmt.Errorf("failed to query schoolsong release for event %d: %w", eventID, err)
	}
	return release, nil
}

func (r *mysqlReleaseRepository) UpdateGuarded(ctx context.Context, eventID int64, guard ReleaseGuard, updates map[string]interface{}) error {
	tx := r.db.WithContext(ctx).Model(&model.SchoolsongRelease{}).
		Where("event_id = ?", eventID).
		Where("admin_approval_status = ?", guard.AdminApprovalStatus)

	if guard.TeacherApproved != nil {
		if *guard.TeacherApproved {
			tx = tx.Where("teacher_approved_at IS NOT NULL")
		} else {
			tx = tx.Where("teacher_approved_at IS NULL")
		}
	}
	if guard.Released != nil {
		if *guard.Released {
			tx = tx.Where("released_at IS NOT NULL")
		} else {
			tx = tx.Where("released_at IS NULL")
		}
	}

	res := tx.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update schoolsong release for event %d: %w", eventID, res.Error)
	}
	if res.RowsAffected == 0 {
		// 记录已被并发修改，或前置条件不满足
		return apperr.Conflictf("schoolsong release for event %d changed underneath", eventID)
	}
	return nil
}
