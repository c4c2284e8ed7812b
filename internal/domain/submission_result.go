package domain

import "time"

// SubmissionResult records the links produced by a completed submission,
// keyed by (kind, idempotency key). A repeated request carrying the same
// Idempotency-Key is answered from this row instead of driving the portal
// again.
type SubmissionResult struct {
	ID           string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Kind         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_submission_kind_key,priority:1"`
	Key          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_submission_kind_key,priority:2"`
	MessageID    string    `gorm:"type:TEXT NOT NULL;index"`
	SnapshotLink string    `gorm:"type:TEXT NOT NULL"`
	ReportLink   string    `gorm:"type:TEXT NOT NULL"`
	Attempts     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt    time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (SubmissionResult) TableName() string { return "submission_results" }
