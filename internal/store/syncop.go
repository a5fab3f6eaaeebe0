package store

import (
	"fmt"

	"github.com/partvault/partvault/internal/models"
)

// JournalOp records an intended cross-store operation before any git
// mutation starts.
func (s *Store) JournalOp(op *models.SyncOp) error {
	op.State = models.SyncOpPending
	if err := s.db.Create(op).Error; err != nil {
		return fmt.Errorf("store: journal %s: %w", op.Op, err)
	}
	return nil
}

// CompleteOp marks a journaled operation as finished on both sides.
func (s *Store) CompleteOp(id int64) error {
	err := s.db.Model(&models.SyncOp{}).
		Where("id = ?", id).
		Update("state", models.SyncOpComplete).Error
	if err != nil {
		return fmt.Errorf("store: complete sync op %d: %w", id, err)
	}
	return nil
}

// PendingOps returns journaled operations that never completed, oldest
// first. These are the reconciliation pass's work list.
func (s *Store) PendingOps() ([]models.SyncOp, error) {
	var ops []models.SyncOp
	err := s.db.Where("state = ?", models.SyncOpPending).
		Order("created_at ASC").
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("store: pending sync ops: %w", err)
	}
	return ops, nil
}

// DeleteOp removes a journal row whose intended operation was rolled back.
func (s *Store) DeleteOp(id int64) error {
	err := s.db.Delete(&models.SyncOp{}, id).Error
	if err != nil {
		return fmt.Errorf("store: delete sync op %d: %w", id, err)
	}
	return nil
}
