package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go-gin-timeclock/internal/core/database"
	"go-gin-timeclock/internal/domain"
)

type TimeEntryRepo struct{ db *gorm.DB }

func NewTimeEntryRepo(db *gorm.DB) *TimeEntryRepo { return &TimeEntryRepo{db: db} }

var _ domain.TimeEntryRepository = (*TimeEntryRepo)(nil)

func (r *TimeEntryRepo) Create(ctx context.Context, e *domain.TimeEntry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return domain.ErrAlreadyClockedIn
		}
		return err
	}
	return nil
}

func (r *TimeEntryRepo) FindActive(ctx context.Context, userID uint) (*domain.TimeEntry, error) {
	var e domain.TimeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND clock_out IS NULL", userID, domain.StatusActive).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *TimeEntryRepo) CloseActive(ctx context.Context, e *domain.TimeEntry) error {
	res := r.db.WithContext(ctx).Model(&domain.TimeEntry{}).
		Where("id = ? AND status = ?", e.ID, domain.StatusActive).
		Updates(map[string]any{
			"clock_out":      e.ClockOut,
			"total_hours":    e.TotalHours,
			"status":         e.Status,
			"notes":          e.Notes,
			"active_user_id": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNoActiveSession
	}
	return nil
}

func (r *TimeEntryRepo) scope(ctx context.Context, userID uint, rng *domain.EntryRange) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.TimeEntry{}).Where("user_id = ?", userID)
	if rng != nil {
		q = q.Where("clock_in >= ? AND clock_in <= ?", rng.From.UTC(), rng.To.UTC())
	}
	return q
}

func (r *TimeEntryRepo) List(ctx context.Context, userID uint, rng *domain.EntryRange, offset, limit int) ([]domain.TimeEntry, error) {
	q := r.scope(ctx, userID, rng).Order("clock_in DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	entries := make([]domain.TimeEntry, 0)
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *TimeEntryRepo) Count(ctx context.Context, userID uint, rng *domain.EntryRange) (int64, error) {
	var n int64
	err := r.scope(ctx, userID, rng).Count(&n).Error
	return n, err
}
