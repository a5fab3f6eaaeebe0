package gitsync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MergeResult reports the outcome of MergeBranch. Conflicts are data, not
// errors: a conflicted merge returns a nil error and HasConflicts true.
type MergeResult struct {
	Success         bool
	HasConflicts    bool
	ConflictedFiles []string
	CommitID        string
	FastForward     bool
	UpToDate        bool
}

// MergeBranch merges the named branch into the currently checked-out branch.
// The merge is classified as up-to-date (no-op), fast-forward (ref move plus
// checkout), or a normal in-memory three-way merge. A conflicted merge
// leaves the repository mid-merge: conflict markers in the affected files,
// stage entries in the index, and MERGE_HEAD set. The caller must resolve
// or abort before further lifecycle operations.
func (r *Repository) MergeBranch(name string) (*MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.merging() {
		return nil, ErrMergeInProgress
	}

	headRef, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("gitsync: resolve HEAD: %w", err)
	}
	if !headRef.Name().IsBranch() {
		return nil, fmt.Errorf("gitsync: HEAD is detached at %s", headRef.Hash())
	}
	currentBranch := headRef.Name().Short()

	theirsRef, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, fmt.Errorf("gitsync: merge %q: %w", name, ErrBranchNotFound)
	}

	ours, err := r.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("gitsync: load HEAD commit: %w", err)
	}
	theirs, err := r.repo.CommitObject(theirsRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("gitsync: load %q commit: %w", name, err)
	}

	// Up to date: theirs is already reachable from ours.
	if ours.Hash == theirs.Hash {
		return &MergeResult{Success: true, UpToDate: true, CommitID: ours.Hash.String()}, nil
	}
	if reachable, err := theirs.IsAncestor(ours); err != nil {
		return nil, fmt.Errorf("gitsync: ancestry of %q: %w", name, err)
	} else if reachable {
		return &MergeResult{Success: true, UpToDate: true, CommitID: ours.Hash.String()}, nil
	}

	// Fast forward: ours has no commits theirs lacks; move the ref.
	if behind, err := ours.IsAncestor(theirs); err != nil {
		return nil, fmt.Errorf("gitsync: ancestry of %q: %w", name, err)
	} else if behind {
		if err := r.fastForward(headRef.Name(), theirs.Hash); err != nil {
			return nil, err
		}
		return &MergeResult{Success: true, FastForward: true, CommitID: theirs.Hash.String()}, nil
	}

	bases, err := ours.MergeBase(theirs)
	if err != nil {
		return nil, fmt.Errorf("gitsync: merge base with %q: %w", name, err)
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("gitsync: merge %q: no common ancestor", name)
	}
	base := bases[0]

	return r.threeWayMerge(currentBranch, name, base, ours, theirs)
}

func (r *Repository) fastForward(branch plumbing.ReferenceName, to plumbing.Hash) error {
	ref := plumbing.NewHashReference(branch, to)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("gitsync: fast-forward %s: %w", branch.Short(), err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitsync: worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch, Force: true}); err != nil {
		return fmt.Errorf("gitsync: checkout after fast-forward: %w", err)
	}
	return nil
}

// conflictEntry carries the three-way stage hashes of one conflicted path.
// A zero hash means the path is absent on that side.
type conflictEntry struct {
	path                         string
	ancestor, ourHash, theirHash plumbing.Hash
}

func (r *Repository) threeWayMerge(oursLabel, theirsLabel string, base, ours, theirs *object.Commit) (*MergeResult, error) {
	baseFiles, err := treeFiles(base)
	if err != nil {
		return nil, err
	}
	oursFiles, err := treeFiles(ours)
	if err != nil {
		return nil, err
	}
	theirsFiles, err := treeFiles(theirs)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range baseFiles {
		paths[p] = true
	}
	for p := range oursFiles {
		paths[p] = true
	}
	for p := range theirsFiles {
		paths[p] = true
	}

	merged := map[string]string{} // path -> content to write
	deleted := map[string]bool{}  // path -> remove from worktree
	var conflicts []conflictEntry

	for path := range paths {
		b, inBase := baseFiles[path]
		o, inOurs := oursFiles[path]
		t, inTheirs := theirsFiles[path]

		oursChanged := inOurs != inBase || (inOurs && o != b)
		theirsChanged := inTheirs != inBase || (inTheirs && t != b)

		switch {
		case !oursChanged && !theirsChanged:
			// Untouched on both sides.
		case !inOurs && !inTheirs:
			// Deleted on both sides.
			deleted[path] = true
		case !oursChanged:
			if !inTheirs {
				deleted[path] = true
				continue
			}
			if t != o {
				content, err := r.blobContent(t)
				if err != nil {
					return nil, err
				}
				merged[path] = content
			}
		case !theirsChanged:
			// Ours wins; worktree already holds it.
			if !inOurs {
				deleted[path] = true
			}
		case inOurs && inTheirs && o == t:
			// Both sides converged.
		default:
			// Both sides changed the path. Try a line-level merge.
			entry := conflictEntry{path: path, ancestor: b, ourHash: o, theirHash: t}
			baseLines, err := r.blobLines(b)
			if err != nil {
				return nil, err
			}
			oursLines, err := r.blobLines(o)
			if err != nil {
				return nil, err
			}
			theirsLines, err := r.blobLines(t)
			if err != nil {
				return nil, err
			}

			lines, conflicted := merge3(baseLines, oursLines, theirsLines, oursLabel, theirsLabel)
			merged[path] = joinLines(lines)
			if conflicted {
				conflicts = append(conflicts, entry)
			}
		}
	}

	if err := r.writeWorktree(merged, deleted); err != nil {
		return nil, err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitsync: worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("gitsync: stage merge results: %w", err)
	}

	message := fmt.Sprintf("Merge branch '%s' into %s", theirsLabel, oursLabel)

	if len(conflicts) == 0 {
		hash, err := wt.Commit(message, &git.CommitOptions{
			Author:  r.signature(),
			Parents: []plumbing.Hash{ours.Hash, theirs.Hash},
		})
		if err != nil {
			return nil, fmt.Errorf("gitsync: merge commit: %w", err)
		}
		return &MergeResult{Success: true, CommitID: hash.String()}, nil
	}

	if err := r.recordConflicts(conflicts); err != nil {
		return nil, err
	}
	if err := os.WriteFile(r.gitPath("MERGE_HEAD"), []byte(theirs.Hash.String()+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("gitsync: write MERGE_HEAD: %w", err)
	}
	if err := os.WriteFile(r.gitPath("MERGE_MSG"), []byte(message+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("gitsync: write MERGE_MSG: %w", err)
	}

	files := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		files = append(files, c.path)
	}
	sort.Strings(files)

	return &MergeResult{HasConflicts: true, ConflictedFiles: files}, nil
}

// recordConflicts replaces the stage-0 index entries of conflicted paths with
// ancestor/ours/theirs stage entries, mirroring what git itself leaves behind.
func (r *Repository) recordConflicts(conflicts []conflictEntry) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("gitsync: read index: %w", err)
	}

	conflicted := map[string]conflictEntry{}
	for _, c := range conflicts {
		conflicted[c.path] = c
	}

	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if _, ok := conflicted[e.Name]; !ok {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept

	for _, c := range conflicts {
		for stage, hash := range map[index.Stage]plumbing.Hash{
			index.AncestorMode: c.ancestor,
			index.OurMode:      c.ourHash,
			index.TheirMode:    c.theirHash,
		} {
			if hash.IsZero() {
				continue
			}
			idx.Entries = append(idx.Entries, &index.Entry{
				Name:  c.path,
				Hash:  hash,
				Mode:  filemode.Regular,
				Stage: stage,
			})
		}
	}

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("gitsync: write index: %w", err)
	}
	return nil
}

func (r *Repository) writeWorktree(merged map[string]string, deleted map[string]bool) error {
	for path, content := range merged {
		full := filepath.Join(r.path, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("gitsync: mkdir for %s: %w", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return fmt.Errorf("gitsync: write %s: %w", path, err)
		}
	}
	for path := range deleted {
		if err := os.Remove(filepath.Join(r.path, path)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("gitsync: remove %s: %w", path, err)
		}
	}
	return nil
}

// treeFiles flattens a commit's tree into a path to blob hash map.
func treeFiles(commit *object.Commit) (map[string]plumbing.Hash, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitsync: tree of %s: %w", commit.Hash, err)
	}
	files := map[string]plumbing.Hash{}
	err = tree.Files().ForEach(func(f *object.File) error {
		files[f.Name] = f.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitsync: walk tree of %s: %w", commit.Hash, err)
	}
	return files, nil
}

// blobContent loads a blob's full content. A zero hash reads as empty,
// covering the deleted side of a modify/delete conflict.
func (r *Repository) blobContent(hash plumbing.Hash) (string, error) {
	if hash.IsZero() {
		return "", nil
	}
	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return "", fmt.Errorf("gitsync: load blob %s: %w", hash, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return "", fmt.Errorf("gitsync: read blob %s: %w", hash, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("gitsync: read blob %s: %w", hash, err)
	}
	return string(data), nil
}

func (r *Repository) blobLines(hash plumbing.Hash) ([]string, error) {
	content, err := r.blobContent(hash)
	if err != nil {
		return nil, err
	}
	return splitLines(content), nil
}
