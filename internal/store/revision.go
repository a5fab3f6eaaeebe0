package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// CreateRevision inserts a revision row. The (part_id, version) pair must be
// unique.
func (s *Store) CreateRevision(rev *models.Revision) error {
	if err := s.db.Create(rev).Error; err != nil {
		return fmt.Errorf("store: create revision v%s of part %d: %w", rev.Version, rev.PartID, wrapErr(err))
	}
	return nil
}

// GetRevision retrieves a revision by id with its part preloaded.
func (s *Store) GetRevision(id int64) (*models.Revision, error) {
	var rev models.Revision
	err := s.db.Preload("Part").Where("id = ?", id).First(&rev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: revision %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get revision %d: %w", id, err)
	}
	return &rev, nil
}

// ListRevisions returns all revisions of a part in version order.
func (s *Store) ListRevisions(partID int64) ([]models.Revision, error) {
	var revs []models.Revision
	err := s.db.Where("part_id = ?", partID).
		Order("CAST(version AS INTEGER) ASC").
		Find(&revs).Error
	if err != nil {
		return nil, fmt.Errorf("store: list revisions of part %d: %w", partID, err)
	}
	return revs, nil
}

// LatestRevision returns the highest-version revision of a part.
func (s *Store) LatestRevision(partID int64) (*models.Revision, error) {
	var rev models.Revision
	err := s.db.Where("part_id = ?", partID).
		Order("CAST(version AS INTEGER) DESC").
		First(&rev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: no revisions for part %d: %w", partID, ErrNotFound)
		}
		return nil, fmt.Errorf("store: latest revision of part %d: %w", partID, err)
	}
	return &rev, nil
}

// UpdateRevision applies field updates to a revision.
func (s *Store) UpdateRevision(id int64, updates map[string]interface{}) error {
	result := s.db.Model(&models.Revision{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("store: update revision %d: %w", id, wrapErr(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: revision %d: %w", id, ErrNotFound)
	}
	return nil
}

// NextVersion computes the successor of a decimal-string version.
func NextVersion(version string) (string, error) {
	n, err := strconv.Atoi(version)
	if err != nil {
		return "", fmt.Errorf("store: malformed version %q: %w", version, err)
	}
	return strconv.Itoa(n + 1), nil
}
