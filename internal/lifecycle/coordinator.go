// Package lifecycle implements the revision lifecycle coordinator: the state
// machine that moves a revision through draft, review, release and
// obsolescence while keeping the metadata store and the design repository in
// step.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/partvault/partvault/internal/gitsync"
	"github.com/partvault/partvault/internal/hooks"
	"github.com/partvault/partvault/internal/lfs"
	"github.com/partvault/partvault/internal/models"
	"github.com/partvault/partvault/internal/store"
	"github.com/partvault/partvault/internal/workflow"
)

// Coordinator combines the metadata store, workflow engine, repository and
// conflict machinery into the externally visible lifecycle operations. One
// mutex serializes every operation end to end; a database transaction and
// the git mutations of one operation are not jointly atomic, so each
// operation journals its intent first and Reconcile repairs partial
// completions after a crash.
type Coordinator struct {
	mu     sync.Mutex
	store  *store.Store
	engine *workflow.Engine
	repo   *gitsync.Repository
	lfs    *lfs.Manager
	hooks  *hooks.Manager
}

// New returns a Coordinator over explicitly owned handles. Handles are
// constructed once at the application root; the coordinator never reaches
// for process-wide state.
func New(st *store.Store, engine *workflow.Engine, repo *gitsync.Repository, lfsMgr *lfs.Manager, hookMgr *hooks.Manager) *Coordinator {
	return &Coordinator{
		store:  st,
		engine: engine,
		repo:   repo,
		lfs:    lfsMgr,
		hooks:  hookMgr,
	}
}

// Repo exposes the repository handle for resolve/abort tooling.
func (c *Coordinator) Repo() *gitsync.Repository {
	return c.repo
}

// InitRepository creates a design repository with LFS tracking and the
// default PLM hooks installed, committing the scaffolding on main.
func InitRepository(path string, lfsPatterns []string, opts gitsync.Options) (*gitsync.Repository, error) {
	repo, err := gitsync.Init(path, opts)
	if err != nil {
		return nil, err
	}
	if err := lfs.NewManager(path).TrackPatterns(lfsPatterns); err != nil {
		return nil, err
	}
	if err := hooks.NewManager(path).InstallDefaultHooks(); err != nil {
		return nil, err
	}
	if _, err := repo.CommitWithMetadata("Install LFS tracking", nil, map[string]string{
		"operation": "init",
	}); err != nil {
		return nil, err
	}
	return repo, nil
}

// CreatePart creates a part with its first draft revision and the draft
// branch. Requires the designer or admin role.
func (c *Coordinator) CreatePart(actor Actor, category, subcategory, name, description string) (*models.Part, *models.Revision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !actor.CanDesign() {
		return nil, nil, fmt.Errorf("create part: role %q: %w", actor.Role, ErrPermissionDenied)
	}

	var (
		part models.Part
		rev  models.Revision
		op   models.SyncOp
	)

	err := c.store.Transaction(func(tx *store.Store) error {
		id, err := tx.NextPartID()
		if err != nil {
			return err
		}
		part = models.Part{
			ID:          id,
			Category:    category,
			Subcategory: subcategory,
			Name:        name,
			Description: description,
		}
		if err := tx.CreatePart(&part); err != nil {
			return err
		}
		rev = models.Revision{
			PartID:    part.ID,
			Version:   "1",
			Status:    string(workflow.StatusDraft),
			CreatedBy: actor.Name,
		}
		if err := tx.CreateRevision(&rev); err != nil {
			return err
		}

		branch, err := draftBranch(tx, &part)
		if err != nil {
			return err
		}
		op = models.SyncOp{Op: "create_part", PartID: part.ID, RevisionID: rev.ID, Branch: branch}
		return tx.JournalOp(&op)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create part: %w", err)
	}

	if err := c.repo.CreateBranch(op.Branch); err != nil {
		return nil, nil, fmt.Errorf("create part: %w", err)
	}
	if err := c.repo.CheckoutBranch(op.Branch); err != nil {
		return nil, nil, fmt.Errorf("create part: %w", err)
	}

	if err := c.store.CompleteOp(op.ID); err != nil {
		return nil, nil, err
	}
	return &part, &rev, nil
}

// SubmitForReview moves a draft revision into review: creates and checks out
// the review branch, sets the status, and opens one pending approval per
// reviewer. Only the revision's author or an admin may submit. A second
// submission without cleanup fails on the (revision, approver) uniqueness
// constraint.
func (c *Coordinator) SubmitForReview(actor Actor, revisionID int64, reviewers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rev, err := c.store.GetRevision(revisionID)
	if err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}
	if actor.Name != rev.CreatedBy && !actor.IsAdmin() {
		return fmt.Errorf("submit for review: %q is not the author of revision %d: %w",
			actor.Name, revisionID, ErrPermissionDenied)
	}
	if err := c.requireStatus(rev, workflow.StatusInReview); err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}
	if len(reviewers) == 0 {
		return fmt.Errorf("submit for review: at least one reviewer is required")
	}

	branch, err := c.ReviewBranch(rev.Part)
	if err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}

	op := models.SyncOp{Op: "submit_for_review", PartID: rev.PartID, RevisionID: rev.ID, Branch: branch}
	if err := c.store.JournalOp(&op); err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}

	// The review branch survives a rejection; reuse it on resubmission.
	if err := c.repo.CreateBranch(branch); err != nil && !errors.Is(err, gitsync.ErrBranchExists) {
		return fmt.Errorf("submit for review: %w", err)
	}
	if err := c.repo.CheckoutBranch(branch); err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}

	err = c.store.Transaction(func(tx *store.Store) error {
		if err := tx.UpdateRevision(rev.ID, map[string]interface{}{
			"status": string(workflow.StatusInReview),
		}); err != nil {
			return err
		}
		// Rows from a previous cycle are not cleaned up here. Resubmitting
		// with the same reviewers hits the (revision, approver) uniqueness
		// constraint until the old approvals are removed explicitly.
		for _, reviewer := range reviewers {
			approval := models.Approval{
				RevisionID: rev.ID,
				Approver:   reviewer,
				Status:     store.ApprovalPending,
			}
			if err := tx.CreateApproval(&approval); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("submit for review: %w", err)
	}

	return c.store.CompleteOp(op.ID)
}

// ApproveRevision records the caller's approval of an in-review revision.
// Requires a non-author designer, or an admin.
func (c *Coordinator) ApproveRevision(actor Actor, revisionID int64, comments string) error {
	return c.resolveReview(actor, revisionID, store.ApprovalApproved, comments)
}

// RejectRevision records the caller's rejection and sends the revision back
// to draft. Sibling approval rows are left untouched.
func (c *Coordinator) RejectRevision(actor Actor, revisionID int64, comments string) error {
	return c.resolveReview(actor, revisionID, store.ApprovalRejected, comments)
}

func (c *Coordinator) resolveReview(actor Actor, revisionID int64, status, comments string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rev, err := c.store.GetRevision(revisionID)
	if err != nil {
		return fmt.Errorf("review revision: %w", err)
	}
	if !actor.CanDesign() {
		return fmt.Errorf("review revision: role %q: %w", actor.Role, ErrPermissionDenied)
	}
	if actor.Name == rev.CreatedBy && !actor.IsAdmin() {
		return fmt.Errorf("review revision: author %q cannot review their own revision: %w",
			actor.Name, ErrPermissionDenied)
	}
	cur, err := workflow.Parse(rev.Status)
	if err != nil {
		return err
	}
	if cur != workflow.StatusInReview {
		return fmt.Errorf("review revision: status is %q, want %q: %w",
			cur, workflow.StatusInReview, ErrInvalidStateTransition)
	}

	return c.store.Transaction(func(tx *store.Store) error {
		if err := tx.ResolveApproval(rev.ID, actor.Name, status, comments); err != nil {
			return err
		}
		if status == store.ApprovalRejected {
			return tx.UpdateRevision(rev.ID, map[string]interface{}{
				"status": string(workflow.StatusDraft),
			})
		}
		return nil
	})
}

// ReleaseRevision merges the review branch into main and marks the revision
// released. The revision must be in review with every approval approved. A
// conflicted merge leaves the repository mid-merge and does not advance the
// status; the returned result carries the conflicted paths.
func (c *Coordinator) ReleaseRevision(actor Actor, revisionID int64) (*gitsync.MergeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rev, err := c.store.GetRevision(revisionID)
	if err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}
	if !actor.CanDesign() {
		return nil, fmt.Errorf("release revision: role %q: %w", actor.Role, ErrPermissionDenied)
	}
	if actor.Name == rev.CreatedBy && !actor.IsAdmin() {
		return nil, fmt.Errorf("release revision: author %q cannot release their own revision: %w",
			actor.Name, ErrPermissionDenied)
	}
	if err := c.requireStatus(rev, workflow.StatusReleased); err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}

	gated, err := c.engine.RequiresApproval(workflow.DefaultWorkflowName,
		string(workflow.StatusInReview), string(workflow.StatusReleased))
	if err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}
	if gated {
		approved, err := c.store.IsRevisionApproved(rev.ID)
		if err != nil {
			return nil, fmt.Errorf("release revision: %w", err)
		}
		if !approved {
			return nil, fmt.Errorf("release revision %d: %w", rev.ID, ErrApprovalRequired)
		}
	}

	branch, err := c.ReviewBranch(rev.Part)
	if err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}

	op := models.SyncOp{Op: "release", PartID: rev.PartID, RevisionID: rev.ID, Branch: branch}
	if err := c.store.JournalOp(&op); err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}

	if err := c.repo.CheckoutBranch(gitsync.DefaultBranch); err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}
	result, err := c.repo.MergeBranch(branch)
	if err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}
	if result.HasConflicts {
		// The repository is mid-merge; the status must not advance. The
		// journal row stays pending until the merge is resolved and the
		// release is retried, or aborted.
		return result, nil
	}

	err = c.store.Transaction(func(tx *store.Store) error {
		return tx.UpdateRevision(rev.ID, map[string]interface{}{
			"status":      string(workflow.StatusReleased),
			"commit_hash": result.CommitID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("release revision: %w", err)
	}

	if err := c.store.CompleteOp(op.ID); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateRevision opens the next draft revision of a part whose latest
// revision is released: a fresh draft branch off main and a new draft row
// with the version incremented.
func (c *Coordinator) CreateRevision(actor Actor, partID int64) (*models.Revision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !actor.CanDesign() {
		return nil, fmt.Errorf("create revision: role %q: %w", actor.Role, ErrPermissionDenied)
	}

	part, err := c.store.GetPart(partID)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	latest, err := c.store.LatestRevision(partID)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	cur, err := workflow.Parse(latest.Status)
	if err != nil {
		return nil, err
	}
	if cur != workflow.StatusReleased {
		return nil, fmt.Errorf("create revision: latest revision of part %d is %q, want %q: %w",
			partID, cur, workflow.StatusReleased, ErrInvalidStateTransition)
	}

	version, err := store.NextVersion(latest.Version)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	branch, err := c.DraftBranch(part)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}

	var (
		rev models.Revision
		op  models.SyncOp
	)
	err = c.store.Transaction(func(tx *store.Store) error {
		rev = models.Revision{
			PartID:    part.ID,
			Version:   version,
			Status:    string(workflow.StatusDraft),
			CreatedBy: actor.Name,
		}
		if err := tx.CreateRevision(&rev); err != nil {
			return err
		}
		op = models.SyncOp{Op: "create_revision", PartID: part.ID, RevisionID: rev.ID, Branch: branch}
		return tx.JournalOp(&op)
	})
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}

	if err := c.repo.CheckoutBranch(gitsync.DefaultBranch); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	// The per-part draft branch carries over between revisions; reset it to
	// main for the fresh draft.
	if exists, err := c.repo.BranchExists(branch); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	} else if exists {
		if err := c.repo.DeleteBranch(branch); err != nil {
			return nil, fmt.Errorf("create revision: %w", err)
		}
	}
	if err := c.repo.CreateBranch(branch); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	if err := c.repo.CheckoutBranch(branch); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}

	if err := c.store.CompleteOp(op.ID); err != nil {
		return nil, err
	}
	return &rev, nil
}

// MarkAsObsolete retires a released revision. No git operation is involved.
func (c *Coordinator) MarkAsObsolete(actor Actor, revisionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !actor.CanDesign() {
		return fmt.Errorf("mark obsolete: role %q: %w", actor.Role, ErrPermissionDenied)
	}
	rev, err := c.store.GetRevision(revisionID)
	if err != nil {
		return fmt.Errorf("mark obsolete: %w", err)
	}
	if err := c.requireStatus(rev, workflow.StatusObsolete); err != nil {
		return fmt.Errorf("mark obsolete: %w", err)
	}

	return c.store.UpdateRevision(rev.ID, map[string]interface{}{
		"status": string(workflow.StatusObsolete),
	})
}

// requireStatus verifies that advancing rev to target is legal from its
// current status, consulting the single transition table.
func (c *Coordinator) requireStatus(rev *models.Revision, target workflow.Status) error {
	cur, err := workflow.Parse(rev.Status)
	if err != nil {
		return err
	}
	if !workflow.CanTransition(cur, target) {
		return fmt.Errorf("revision %d: %q cannot move to %q: %w",
			rev.ID, cur, target, ErrInvalidStateTransition)
	}
	return nil
}
