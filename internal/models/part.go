package models

import "time"

// Part is a catalog item identified by a sequential numeric id and a
// category/subcategory classification. Part ids are allocated from the
// "part_id" sequence, which starts at 10000.
type Part struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false"`
	Category    string `gorm:"size:64;not null;uniqueIndex:idx_parts_identity"`
	Subcategory string `gorm:"size:64;not null;uniqueIndex:idx_parts_identity"`
	Name        string `gorm:"size:128;not null;uniqueIndex:idx_parts_identity"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Revisions []Revision `gorm:"foreignKey:PartID"`
}

// Revision is a versioned state of a part's design data. Versions are
// decimal-string integers strictly increasing per part, starting at "1".
// CommitHash stays nil until the revision's first commit lands.
type Revision struct {
	ID         int64   `gorm:"primaryKey"`
	PartID     int64   `gorm:"not null;index;uniqueIndex:idx_revisions_version"`
	Version    string  `gorm:"size:16;not null;uniqueIndex:idx_revisions_version"`
	Status     string  `gorm:"size:16;not null;default:draft;index;check:chk_revision_status,status IN ('draft','in_review','released','obsolete')"`
	CreatedBy  string  `gorm:"size:64;not null"`
	CommitHash *string `gorm:"size:40"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Part      *Part      `gorm:"foreignKey:PartID"`
	Approvals []Approval `gorm:"foreignKey:RevisionID"`
}

// Approval is one reviewer's disposition for a revision. The
// (revision_id, approver) pair is unique: one row per reviewer per revision.
// DecidedAt is set whenever the row leaves pending.
type Approval struct {
	ID         int64  `gorm:"primaryKey"`
	RevisionID int64  `gorm:"not null;index;uniqueIndex:idx_approvals_reviewer"`
	Approver   string `gorm:"size:64;not null;uniqueIndex:idx_approvals_reviewer"`
	Status     string `gorm:"size:16;not null;default:pending;check:chk_approval_status,status IN ('pending','approved','rejected')"`
	DecidedAt  *time.Time
	Comments   string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Revision *Revision `gorm:"foreignKey:RevisionID"`
}

// Category maps a category name to the short code used in branch names.
type Category struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
	Code string `gorm:"size:8;not null"`
}

// Subcategory maps a subcategory name to the short code used in branch names.
type Subcategory struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
	Code string `gorm:"size:8;not null"`
}

// Sequence backs monotonic id allocation across database drivers.
type Sequence struct {
	Name string `gorm:"primaryKey;size:32"`
	Next int64  `gorm:"not null"`
}
