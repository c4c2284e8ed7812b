// Package repo: this file holds the thin repository functions for the
// id_mappings and counter_state tables. They accept a *gorm.DB so they can
// run inside a caller's transaction.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// GetMapping returns the mapping for submissionID or ErrNotFound.
func GetMapping(ctx context.Context, db *gorm.DB, submissionID string) (*domain.IDMapping, error) {
	var m domain.IDMapping
	err := db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMapping inserts a mapping and returns ErrDuplicate when either the
// submission key or the message identifier already exists.
func CreateMapping(ctx context.Context, db *gorm.DB, submissionID, messageID string, at time.Time) (*domain.IDMapping, error) {
	m := &domain.IDMapping{
		SubmissionID: submissionID,
		MessageID:    messageID,
		CreatedAt:    at.UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// CountMappings returns the total number of issued identifiers.
func CountMappings(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.IDMapping{}).Count(&n).Error
	return n, err
}

// ListMappingsPage returns mappings newest first.
func ListMappingsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.IDMapping, error) {
	var out []domain.IDMapping
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Order("submission_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetCounter returns the single counter row or ErrNotFound.
func GetCounter(ctx context.Context, db *gorm.DB) (*domain.CounterState, error) {
	var c domain.CounterState
	err := db.WithContext(ctx).Where("id = ?", domain.CounterRowID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCounter overwrites last_val. Intended for administration and tests.
func SetCounter(ctx context.Context, db *gorm.DB, v int) error {
	return db.WithContext(ctx).Model(&domain.CounterState{}).
		Where("id = ?", domain.CounterRowID).
		Update("last_val", v).Error
}
