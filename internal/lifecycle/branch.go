package lifecycle

import (
	"fmt"

	"github.com/partvault/partvault/internal/models"
	"github.com/partvault/partvault/internal/store"
)

// Branch name suffixes for the two working phases of a revision.
const (
	draftSuffix  = "draft"
	reviewSuffix = "review"
)

// branchBase computes the persisted branch-name prefix for a part:
// part/{CAT}-{SUB}-{id}. The category and subcategory codes resolve from the
// code tables with a literal-prefix fallback. This string is the join key
// between the metadata store and the repository; the derivation must never
// change for existing parts. Callers inside a transaction pass the
// transaction-scoped store so the code lookups see that connection.
func branchBase(st *store.Store, part *models.Part) (string, error) {
	cat, err := st.CategoryCode(part.Category)
	if err != nil {
		return "", err
	}
	sub, err := st.SubcategoryCode(part.Subcategory)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("part/%s-%s-%d", cat, sub, part.ID), nil
}

func draftBranch(st *store.Store, part *models.Part) (string, error) {
	base, err := branchBase(st, part)
	if err != nil {
		return "", err
	}
	return base + "/" + draftSuffix, nil
}

func reviewBranch(st *store.Store, part *models.Part) (string, error) {
	base, err := branchBase(st, part)
	if err != nil {
		return "", err
	}
	return base + "/" + reviewSuffix, nil
}

// DraftBranch returns the draft-phase branch name for a part.
func (c *Coordinator) DraftBranch(part *models.Part) (string, error) {
	return draftBranch(c.store, part)
}

// ReviewBranch returns the review-phase branch name for a part.
func (c *Coordinator) ReviewBranch(part *models.Part) (string, error) {
	return reviewBranch(c.store, part)
}
