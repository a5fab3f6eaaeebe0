package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// CreateApproval inserts a pending approval row for a reviewer. One row per
// (revision, approver) pair; a second insert fails with ErrDuplicate.
func (s *Store) CreateApproval(approval *models.Approval) error {
	if err := s.db.Create(approval).Error; err != nil {
		return fmt.Errorf("store: create approval for %q on revision %d: %w",
			approval.Approver, approval.RevisionID, wrapErr(err))
	}
	return nil
}

// GetApproval retrieves the approval row for one reviewer on one revision.
func (s *Store) GetApproval(revisionID int64, approver string) (*models.Approval, error) {
	var approval models.Approval
	err := s.db.Where("revision_id = ? AND approver = ?", revisionID, approver).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: approval for %q on revision %d: %w", approver, revisionID, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get approval for %q on revision %d: %w", approver, revisionID, err)
	}
	return &approval, nil
}

// ListApprovals returns all approval rows for a revision.
func (s *Store) ListApprovals(revisionID int64) ([]models.Approval, error) {
	var approvals []models.Approval
	err := s.db.Where("revision_id = ?", revisionID).
		Order("approver ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, fmt.Errorf("store: list approvals of revision %d: %w", revisionID, err)
	}
	return approvals, nil
}

// ResolveApproval sets one reviewer's disposition, creating the row if it
// does not exist yet. DecidedAt is stamped on any non-pending status.
func (s *Store) ResolveApproval(revisionID int64, approver, status, comments string) error {
	existing, err := s.GetApproval(revisionID, approver)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		approval := models.Approval{
			RevisionID: revisionID,
			Approver:   approver,
			Status:     ApprovalPending,
		}
		if err := s.CreateApproval(&approval); err != nil {
			return err
		}
		existing = &approval
	}

	updates := map[string]interface{}{
		"status":   status,
		"comments": comments,
	}
	if status != ApprovalPending {
		updates["decided_at"] = time.Now()
	}
	err = s.db.Model(&models.Approval{}).Where("id = ?", existing.ID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("store: resolve approval %d: %w", existing.ID, wrapErr(err))
	}
	return nil
}

// IsRevisionApproved reports whether a revision has at least one approval
// row and every row is approved.
func (s *Store) IsRevisionApproved(revisionID int64) (bool, error) {
	var total, approved int64
	err := s.db.Model(&models.Approval{}).
		Where("revision_id = ?", revisionID).
		Count(&total).Error
	if err != nil {
		return false, fmt.Errorf("store: count approvals of revision %d: %w", revisionID, err)
	}
	if total == 0 {
		return false, nil
	}
	err = s.db.Model(&models.Approval{}).
		Where("revision_id = ? AND status = ?", revisionID, ApprovalApproved).
		Count(&approved).Error
	if err != nil {
		return false, fmt.Errorf("store: count approved of revision %d: %w", revisionID, err)
	}
	return approved == total, nil
}

// DeleteApprovals removes all approval rows for a revision. Submission does
// not call this itself; a rejected revision resubmitted with the same
// reviewers fails on the uniqueness constraint until the old rows are
// cleared explicitly.
func (s *Store) DeleteApprovals(revisionID int64) error {
	err := s.db.Where("revision_id = ?", revisionID).Delete(&models.Approval{}).Error
	if err != nil {
		return fmt.Errorf("store: delete approvals of revision %d: %w", revisionID, err)
	}
	return nil
}
