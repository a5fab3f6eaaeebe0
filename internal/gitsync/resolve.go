package gitsync

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// isConflictStage reports whether an index entry sits in one of the three
// merge stages rather than the fully-merged stage.
func isConflictStage(s index.Stage) bool {
	return s == index.AncestorMode || s == index.OurMode || s == index.TheirMode
}

// StagedConflict carries the three-way contents of one conflicted path, read
// from the ancestor/ours/theirs index stages. A side deleted in the merge
// reads as empty.
type StagedConflict struct {
	Path     string
	Ancestor string
	Ours     string
	Theirs   string
}

// Conflicts enumerates the index entries left in merge stages, grouped by
// path, with blob contents loaded.
func (r *Repository) Conflicts() ([]StagedConflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("gitsync: read index: %w", err)
	}

	byPath := map[string]*StagedConflict{}
	for _, e := range idx.Entries {
		if !isConflictStage(e.Stage) {
			continue
		}
		c := byPath[e.Name]
		if c == nil {
			c = &StagedConflict{Path: e.Name}
			byPath[e.Name] = c
		}
		content, err := r.blobContent(e.Hash)
		if err != nil {
			return nil, err
		}
		switch e.Stage {
		case index.AncestorMode:
			c.Ancestor = content
		case index.OurMode:
			c.Ours = content
		case index.TheirMode:
			c.Theirs = content
		}
	}

	conflicts := make([]StagedConflict, 0, len(byPath))
	for _, c := range byPath {
		conflicts = append(conflicts, *c)
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return conflicts, nil
}

// WorkingFile reads a path from the working tree, conflict markers included.
func (r *Repository) WorkingFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.path, path))
	if err != nil {
		return "", fmt.Errorf("gitsync: read working file %s: %w", path, err)
	}
	return string(data), nil
}

// MarkResolved writes the resolved content of a conflicted path and collapses
// its index stages back to a single merged entry.
func (r *Repository) MarkResolved(path, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.merging() {
		return ErrNotMerging
	}

	full := filepath.Join(r.path, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("gitsync: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("gitsync: write %s: %w", path, err)
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("gitsync: read index: %w", err)
	}
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != path {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept
	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("gitsync: write index: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitsync: worktree: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return fmt.Errorf("gitsync: stage resolved %s: %w", path, err)
	}
	return nil
}

// CompleteMerge commits the resolved merge with both parents and clears the
// mid-merge state. Fails while any path is still in a merge stage.
func (r *Repository) CompleteMerge(message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.merging() {
		return "", ErrNotMerging
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return "", fmt.Errorf("gitsync: read index: %w", err)
	}
	for _, e := range idx.Entries {
		if isConflictStage(e.Stage) {
			return "", fmt.Errorf("gitsync: complete merge: %s is unresolved", e.Name)
		}
	}

	headRef, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("gitsync: resolve HEAD: %w", err)
	}
	raw, err := os.ReadFile(r.gitPath("MERGE_HEAD"))
	if err != nil {
		return "", fmt.Errorf("gitsync: read MERGE_HEAD: %w", err)
	}
	mergeHead := plumbing.NewHash(string(splitLines(string(raw))[0]))

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitsync: worktree: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:  r.signature(),
		Parents: []plumbing.Hash{headRef.Hash(), mergeHead},
	})
	if err != nil {
		return "", fmt.Errorf("gitsync: merge commit: %w", err)
	}

	for _, name := range []string{"MERGE_HEAD", "MERGE_MSG"} {
		if err := os.Remove(r.gitPath(name)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("gitsync: clear %s: %w", name, err)
		}
	}
	return hash.String(), nil
}
