package lifecycle

import (
	"fmt"

	"github.com/partvault/partvault/internal/gitsync"
	"github.com/partvault/partvault/internal/models"
	"github.com/partvault/partvault/internal/workflow"
)

// Action describes one repair taken by Reconcile.
type Action struct {
	Op     string
	Detail string
}

// Reconcile scans the journal for operations that began but never completed
// and repairs each side to a consistent state. It is safe to run at any time
// except while a merge is in progress, and it is the crash-recovery path: a
// process killed between the database transaction and the git mutation
// leaves a pending journal row behind, and this pass finishes or unwinds it.
func (c *Coordinator) Reconcile() ([]Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo.State() == gitsync.StateMerging {
		return nil, fmt.Errorf("reconcile: %w", gitsync.ErrMergeInProgress)
	}

	ops, err := c.store.PendingOps()
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	var actions []Action
	for _, op := range ops {
		action, err := c.repair(op)
		if err != nil {
			return actions, fmt.Errorf("reconcile op %d (%s): %w", op.ID, op.Op, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func (c *Coordinator) repair(op models.SyncOp) (Action, error) {
	switch op.Op {
	case "create_part", "create_revision":
		// The part and revision rows committed; the branch may be missing.
		exists, err := c.repo.BranchExists(op.Branch)
		if err != nil {
			return Action{}, err
		}
		if !exists {
			if err := c.repo.CheckoutBranch(gitsync.DefaultBranch); err != nil {
				return Action{}, err
			}
			if err := c.repo.CreateBranch(op.Branch); err != nil {
				return Action{}, err
			}
			if err := c.store.CompleteOp(op.ID); err != nil {
				return Action{}, err
			}
			return Action{Op: op.Op, Detail: fmt.Sprintf("recreated branch %s", op.Branch)}, nil
		}
		if err := c.store.CompleteOp(op.ID); err != nil {
			return Action{}, err
		}
		return Action{Op: op.Op, Detail: fmt.Sprintf("branch %s present, marked complete", op.Branch)}, nil

	case "submit_for_review":
		// The review branch may exist while the status transaction never
		// committed. The database is authoritative: if the revision is not
		// in review, drop the branch and the journal row so the submission
		// can be retried cleanly.
		rev, err := c.store.GetRevision(op.RevisionID)
		if err != nil {
			return Action{}, err
		}
		if rev.Status != string(workflow.StatusInReview) {
			if exists, err := c.repo.BranchExists(op.Branch); err != nil {
				return Action{}, err
			} else if exists {
				if cur, err := c.repo.CurrentBranch(); err == nil && cur == op.Branch {
					if err := c.repo.CheckoutBranch(gitsync.DefaultBranch); err != nil {
						return Action{}, err
					}
				}
				if err := c.repo.DeleteBranch(op.Branch); err != nil {
					return Action{}, err
				}
			}
			if err := c.store.DeleteOp(op.ID); err != nil {
				return Action{}, err
			}
			return Action{Op: op.Op, Detail: fmt.Sprintf("unwound stale review branch %s", op.Branch)}, nil
		}
		if err := c.store.CompleteOp(op.ID); err != nil {
			return Action{}, err
		}
		return Action{Op: op.Op, Detail: "submission already effective, marked complete"}, nil

	case "release":
		// Either the merge commit and the status both landed, or neither
		// took effect (a conflicted merge that was aborted, or a crash
		// before the status update). The former completes, the latter is
		// dropped so the release can be retried.
		rev, err := c.store.GetRevision(op.RevisionID)
		if err != nil {
			return Action{}, err
		}
		if rev.Status == string(workflow.StatusReleased) {
			if err := c.store.CompleteOp(op.ID); err != nil {
				return Action{}, err
			}
			return Action{Op: op.Op, Detail: "release already effective, marked complete"}, nil
		}
		if err := c.store.DeleteOp(op.ID); err != nil {
			return Action{}, err
		}
		return Action{Op: op.Op, Detail: fmt.Sprintf("release of revision %d did not land, cleared for retry", op.RevisionID)}, nil

	default:
		if err := c.store.DeleteOp(op.ID); err != nil {
			return Action{}, err
		}
		return Action{Op: op.Op, Detail: "unknown operation, dropped"}, nil
	}
}
