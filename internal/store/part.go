package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// PartFilters holds optional filters for listing parts.
type PartFilters struct {
	Category    string
	Subcategory string
}

// NextPartID allocates the next id from the part-id sequence. Must run
// inside a transaction so concurrent allocations serialize on the row.
func (s *Store) NextPartID() (int64, error) {
	var seq models.Sequence
	err := s.db.Where("name = ?", "part_id").First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("store: part_id sequence not seeded: %w", ErrNotFound)
		}
		return 0, fmt.Errorf("store: read part_id sequence: %w", err)
	}

	id := seq.Next
	err = s.db.Model(&models.Sequence{}).
		Where("name = ?", "part_id").
		Update("next", id+1).Error
	if err != nil {
		return 0, fmt.Errorf("store: advance part_id sequence: %w", err)
	}
	return id, nil
}

// CreatePart inserts a part row. The (category, subcategory, name) triple
// must be unique.
func (s *Store) CreatePart(part *models.Part) error {
	if err := s.db.Create(part).Error; err != nil {
		return fmt.Errorf("store: create part %q: %w", part.Name, wrapErr(err))
	}
	return nil
}

// GetPart retrieves a part by id with its revisions preloaded.
func (s *Store) GetPart(id int64) (*models.Part, error) {
	var part models.Part
	err := s.db.Preload("Revisions").Where("id = ?", id).First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: part %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get part %d: %w", id, err)
	}
	return &part, nil
}

// ListParts returns parts matching the filters, ordered by id.
func (s *Store) ListParts(filters PartFilters) ([]models.Part, error) {
	q := s.db.Model(&models.Part{})
	if filters.Category != "" {
		q = q.Where("category = ?", filters.Category)
	}
	if filters.Subcategory != "" {
		q = q.Where("subcategory = ?", filters.Subcategory)
	}

	var parts []models.Part
	if err := q.Order("id ASC").Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("store: list parts: %w", err)
	}
	return parts, nil
}

// UpdatePart applies field updates to a part.
func (s *Store) UpdatePart(id int64, updates map[string]interface{}) error {
	result := s.db.Model(&models.Part{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("store: update part %d: %w", id, wrapErr(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: part %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePart removes a part row. Normal lifecycle never deletes parts; this
// exists for administrative cleanup.
func (s *Store) DeletePart(id int64) error {
	result := s.db.Delete(&models.Part{}, id)
	if result.Error != nil {
		return fmt.Errorf("store: delete part %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: part %d: %w", id, ErrNotFound)
	}
	return nil
}

// CategoryCode resolves the branch-name code for a category, falling back to
// the first two letters of the literal name, uppercased.
func (s *Store) CategoryCode(name string) (string, error) {
	var cat models.Category
	err := s.db.Where("name = ?", name).First(&cat).Error
	if err == nil {
		return cat.Code, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("store: category code for %q: %w", name, err)
	}
	return fallbackCode(name, 2), nil
}

// SubcategoryCode resolves the branch-name code for a subcategory, falling
// back to the first three letters of the literal name, uppercased.
func (s *Store) SubcategoryCode(name string) (string, error) {
	var sub models.Subcategory
	err := s.db.Where("name = ?", name).First(&sub).Error
	if err == nil {
		return sub.Code, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("store: subcategory code for %q: %w", name, err)
	}
	return fallbackCode(name, 3), nil
}

// fallbackCode derives a code from the literal name when no code-table row
// exists: the first n letters, uppercased. This feeds the persisted branch
// naming contract, so the derivation must stay stable.
func fallbackCode(name string, n int) string {
	runes := []rune(name)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.ToUpper(string(runes))
}
