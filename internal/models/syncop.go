package models

import "time"

// SyncOp states.
const (
	SyncOpPending  = "pending"
	SyncOpComplete = "complete"
)

// SyncOp journals an intended cross-store operation before any git mutation
// starts, and is marked complete only once both the database and the
// repository side succeeded. Pending rows left behind by a crash are picked
// up by the reconciliation pass.
type SyncOp struct {
	ID         int64  `gorm:"primaryKey"`
	Op         string `gorm:"size:32;not null"`
	PartID     int64  `gorm:"index"`
	RevisionID int64  `gorm:"index"`
	Branch     string `gorm:"size:128"`
	State      string `gorm:"size:16;not null;default:pending;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
