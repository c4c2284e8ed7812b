package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// GetSubmissionResult returns a non-expired result for (kind, key) or ErrNotFound.
func GetSubmissionResult(ctx context.Context, db *gorm.DB, kind, key string, now time.Time) (*domain.SubmissionResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.SubmissionResult
	err := db.WithContext(ctx).
		Where("kind = ? AND key = ? AND expires_at > ?", kind, key, now.UTC()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateSubmissionResult stores a completed submission. It returns
// ErrDuplicate when a result for (kind, key) already exists.
func CreateSubmissionResult(ctx context.Context, db *gorm.DB, rec domain.SubmissionResult, ttl time.Duration) (*domain.SubmissionResult, error) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(ttl)
	if err := db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &rec, nil
}

// PurgeExpiredResults deletes results whose replay window has passed.
func PurgeExpiredResults(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.SubmissionResult{})
	return res.RowsAffected, res.Error
}
