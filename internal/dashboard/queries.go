package dashboard

import (
	"time"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// PartRow holds part data for the list endpoint, flattened with the latest
// revision.
type PartRow struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	LatestVersion string    `json:"latest_version,omitempty"`
	LatestStatus  string    `json:"latest_status,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PartSummary returns every part with its numerically latest revision.
func PartSummary(db *gorm.DB) ([]PartRow, error) {
	var parts []models.Part
	if err := db.Order("id ASC").Find(&parts).Error; err != nil {
		return nil, err
	}

	rows := make([]PartRow, len(parts))
	for i, p := range parts {
		rows[i] = PartRow{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Subcategory: p.Subcategory,
			UpdatedAt:   p.UpdatedAt,
		}
		var latest models.Revision
		err := db.Where("part_id = ?", p.ID).
			Order("CAST(version AS INTEGER) DESC").
			First(&latest).Error
		if err == nil {
			rows[i].LatestVersion = latest.Version
			rows[i].LatestStatus = latest.Status
		}
	}
	return rows, nil
}

// CategoryStatusCount holds revision counts by status for one category.
type CategoryStatusCount struct {
	Category string `json:"category"`
	Draft    int    `json:"draft"`
	InReview int    `json:"in_review"`
	Released int    `json:"released"`
	Obsolete int    `json:"obsolete"`
	Total    int    `json:"total"`
}

// StatusSummary returns per-category revision counts grouped by status.
func StatusSummary(db *gorm.DB) ([]CategoryStatusCount, error) {
	type row struct {
		Category string
		Status   string
		Count    int
	}
	var rows []row
	if err := db.Model(&models.Revision{}).
		Select("parts.category as category, revisions.status as status, count(*) as count").
		Joins("JOIN parts ON parts.id = revisions.part_id").
		Group("parts.category, revisions.status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	categoryMap := make(map[string]*CategoryStatusCount)
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		cc, ok := categoryMap[r.Category]
		if !ok {
			cc = &CategoryStatusCount{Category: r.Category}
			categoryMap[r.Category] = cc
			order = append(order, r.Category)
		}
		cc.Total += r.Count
		switch r.Status {
		case "draft":
			cc.Draft += r.Count
		case "in_review":
			cc.InReview += r.Count
		case "released":
			cc.Released += r.Count
		case "obsolete":
			cc.Obsolete += r.Count
		}
	}

	result := make([]CategoryStatusCount, 0, len(order))
	for _, name := range order {
		result = append(result, *categoryMap[name])
	}
	return result, nil
}

// ReviewRow holds one pending approval for the review queue endpoint.
type ReviewRow struct {
	ApprovalID  int64     `json:"approval_id"`
	PartID      int64     `json:"part_id"`
	PartName    string    `json:"part_name"`
	RevisionID  int64     `json:"revision_id"`
	Version     string    `json:"version"`
	Approver    string    `json:"approver"`
	RequestedAt time.Time `json:"requested_at"`
}

// PendingReviews returns every pending approval on an in-review revision,
// oldest first.
func PendingReviews(db *gorm.DB) ([]ReviewRow, error) {
	var rows []ReviewRow
	err := db.Model(&models.Approval{}).
		Select(`approvals.id as approval_id, parts.id as part_id, parts.name as part_name,
			revisions.id as revision_id, revisions.version as version,
			approvals.approver as approver, approvals.created_at as requested_at`).
		Joins("JOIN revisions ON revisions.id = approvals.revision_id").
		Joins("JOIN parts ON parts.id = revisions.part_id").
		Where("approvals.status = ? AND revisions.status = ?", "pending", "in_review").
		Order("approvals.created_at ASC, approvals.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReviewQueueDepth returns the count of pending approvals on in-review
// revisions.
func ReviewQueueDepth(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Approval{}).
		Joins("JOIN revisions ON revisions.id = approvals.revision_id").
		Where("approvals.status = ? AND revisions.status = ?", "pending", "in_review").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
