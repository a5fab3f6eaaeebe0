package conflict

import (
	"errors"
	"fmt"

	"github.com/partvault/partvault/internal/gitsync"
)

// ErrNotConflicted reports a resolution request for a path with no staged
// conflict.
var ErrNotConflicted = errors.New("conflict: path is not conflicted")

// Resolver applies resolution strategies to a repository left mid-merge.
type Resolver struct {
	repo *gitsync.Repository
}

// NewResolver returns a Resolver over the given repository.
func NewResolver(repo *gitsync.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Detect enumerates the staged conflicts of the in-progress merge.
func (r *Resolver) Detect() ([]gitsync.StagedConflict, error) {
	return r.repo.Conflicts()
}

// ResolveText resolves one conflicted path with a generic text strategy and
// stages the result.
func (r *Resolver) ResolveText(path string, strategy TextStrategy) error {
	staged, err := r.staged(path)
	if err != nil {
		return err
	}

	var content string
	switch strategy {
	case TextOurs:
		content = staged.Ours
	case TextTheirs:
		content = staged.Theirs
	case TextUnion:
		content, err = r.resolveFromMarkers(path, func(seg segment) []string {
			return append(append([]string{}, seg.ours...), seg.theirs...)
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("conflict: unknown text strategy %v", strategy)
	}

	if err := r.repo.MarkResolved(path, content); err != nil {
		return fmt.Errorf("conflict: resolve %s with %v: %w", path, strategy, err)
	}
	return nil
}

// ResolveBOM resolves one conflicted bill-of-materials path and stages the
// result. The strategies operate on the marker-delimited working copy, so
// cleanly merged regions outside the conflict blocks are preserved.
func (r *Resolver) ResolveBOM(path string, strategy BOMStrategy) error {
	if _, err := r.staged(path); err != nil {
		return err
	}

	var pick func(seg segment) []string
	switch strategy {
	case BOMPreferOurs:
		pick = func(seg segment) []string { return seg.ours }
	case BOMPreferTheirs:
		pick = func(seg segment) []string { return seg.theirs }
	case BOMMergeQuantities:
		pick = bannerBoth
	default:
		return fmt.Errorf("conflict: unknown BOM strategy %v", strategy)
	}

	content, err := r.resolveFromMarkers(path, pick)
	if err != nil {
		return err
	}
	if err := r.repo.MarkResolved(path, content); err != nil {
		return fmt.Errorf("conflict: resolve %s with %v: %w", path, strategy, err)
	}
	return nil
}

// Complete commits the resolved merge.
func (r *Resolver) Complete(message string) (string, error) {
	return r.repo.CompleteMerge(message)
}

// Abort resets the in-progress merge.
func (r *Resolver) Abort() error {
	return r.repo.AbortMerge()
}

func (r *Resolver) staged(path string) (*gitsync.StagedConflict, error) {
	conflicts, err := r.repo.Conflicts()
	if err != nil {
		return nil, err
	}
	for i := range conflicts {
		if conflicts[i].Path == path {
			return &conflicts[i], nil
		}
	}
	return nil, fmt.Errorf("conflict: %s: %w", path, ErrNotConflicted)
}

func (r *Resolver) resolveFromMarkers(path string, pick func(seg segment) []string) (string, error) {
	working, err := r.repo.WorkingFile(path)
	if err != nil {
		return "", err
	}
	segments, err := parseMarkers(working)
	if err != nil {
		return "", fmt.Errorf("conflict: parse %s: %w", path, err)
	}
	return render(segments, pick), nil
}

// bannerBoth keeps both sides of a conflict block behind comment banners.
// Quantities are not reconciled structurally; the banners flag the block for
// manual review before release.
func bannerBoth(seg segment) []string {
	out := []string{"# <<< BOM conflict: both quantity sets kept, review before release"}
	out = append(out, "# --- ours")
	out = append(out, seg.ours...)
	out = append(out, "# --- theirs")
	out = append(out, seg.theirs...)
	out = append(out, "# >>> end BOM conflict")
	return out
}
