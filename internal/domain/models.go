// Package domain defines the core persistence models and value types for the
// portal submission service. The GORM-mapped types are shared across the
// repository and service layers; the remaining types describe submissions and
// the artifacts produced for them.
package domain

import "time"

// IDMapping binds a caller-chosen submission key to the message identifier
// issued for it. A row is written once, on first allocation, and is never
// updated or deleted.
//
// Fields:
//   - SubmissionID: trimmed submission key (primary key).
//   - MessageID: issued identifier, e.g. "00001FTICLI112025" (unique).
//   - CreatedAt: allocation time (UTC).
type IDMapping struct {
	SubmissionID string    `json:"submission_id" gorm:"type:TEXT;primaryKey"`
	MessageID    string    `json:"message_id"    gorm:"type:TEXT;not null;uniqueIndex:ux_id_mappings_message"`
	CreatedAt    time.Time `json:"created_at"    gorm:"not null;index:idx_id_mappings_created"`
}

// TableName returns the database table name for IDMapping.
func (IDMapping) TableName() string { return "id_mappings" }

// CounterRowID is the fixed primary key of the single counter row.
const CounterRowID = 1

// CounterState is the single-row sequence counter. LastVal always holds the
// most recently issued sequence number in [0, 99999].
type CounterState struct {
	ID      int `json:"id"       gorm:"primaryKey;autoIncrement:false"`
	LastVal int `json:"last_val" gorm:"column:last_val;not null;default:0"`
}

// TableName returns the database table name for CounterState.
func (CounterState) TableName() string { return "counter_state" }
