// Package gitsync provides branch, checkout, merge and commit primitives
// over a local design repository, plus the commit-message metadata channel.
package gitsync

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the trunk every released revision merges into.
const DefaultBranch = "main"

// Typed repository errors.
var (
	ErrBranchExists    = errors.New("gitsync: branch already exists")
	ErrBranchNotFound  = errors.New("gitsync: branch not found")
	ErrMergeInProgress = errors.New("gitsync: merge in progress")
	ErrNotMerging      = errors.New("gitsync: no merge in progress")
)

// State reports whether the repository is mid-merge.
type State int

const (
	StateClean State = iota
	StateMerging
)

// Options configures the commit identity used for all writes.
type Options struct {
	AuthorName  string
	AuthorEmail string
}

func (o *Options) applyDefaults() {
	if o.AuthorName == "" {
		o.AuthorName = "PartVault"
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = "partvault@localhost"
	}
}

// Repository wraps one local git repository. A single mutex serializes all
// operations against the handle.
type Repository struct {
	mu   sync.Mutex
	path string
	repo *git.Repository
	opts Options
}

// Init creates a repository at path with an empty root commit on main.
func Init(path string, opts Options) (*Repository, error) {
	opts.applyDefaults()

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("gitsync: init %s: %w", path, err)
	}

	// Point HEAD at main before the first commit so the default branch is
	// born with the right name.
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(DefaultBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("gitsync: set HEAD to %s: %w", DefaultBranch, err)
	}

	r := &Repository{path: path, repo: repo, opts: opts}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitsync: worktree of %s: %w", path, err)
	}
	if _, err := wt.Commit("Initialize PLM repository", &git.CommitOptions{
		Author:            r.signature(),
		AllowEmptyCommits: true,
	}); err != nil {
		return nil, fmt.Errorf("gitsync: initial commit: %w", err)
	}

	return r, nil
}

// Open opens an existing repository at path.
func Open(path string, opts Options) (*Repository, error) {
	opts.applyDefaults()
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitsync: open %s: %w", path, err)
	}
	return &Repository{path: path, repo: repo, opts: opts}, nil
}

// Path returns the repository working directory.
func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) signature() *object.Signature {
	return &object.Signature{
		Name:  r.opts.AuthorName,
		Email: r.opts.AuthorEmail,
		When:  time.Now(),
	}
}

// Head returns the commit hash HEAD points at.
func (r *Repository) Head() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head()
}

func (r *Repository) head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("gitsync: resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repository) CurrentBranch() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("gitsync: resolve HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("gitsync: HEAD is detached at %s", ref.Hash())
	}
	return ref.Name().Short(), nil
}

// BranchExists reports whether a local branch exists.
func (r *Repository) BranchExists(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.branchExists(name)
}

func (r *Repository) branchExists(name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("gitsync: resolve branch %q: %w", name, err)
}

// CreateBranch creates a branch at the current HEAD commit. It does not
// check the branch out.
func (r *Repository) CreateBranch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.branchExists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("gitsync: create branch %q: %w", name, ErrBranchExists)
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("gitsync: resolve HEAD: %w", err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("gitsync: create branch %q: %w", name, err)
	}
	return nil
}

// CheckoutBranch force-checks-out a branch and updates HEAD. Refused while
// a merge is in progress; resolve or abort first.
func (r *Repository) CheckoutBranch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.merging() {
		return ErrMergeInProgress
	}

	exists, err := r.branchExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("gitsync: checkout %q: %w", name, ErrBranchNotFound)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitsync: worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Force:  true,
	}); err != nil {
		return fmt.Errorf("gitsync: checkout %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes a local branch ref. Used by the reconciliation pass
// to clean up orphans.
func (r *Repository) DeleteBranch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.branchExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("gitsync: delete branch %q: %w", name, ErrBranchNotFound)
	}
	if err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("gitsync: delete branch %q: %w", name, err)
	}
	return nil
}

// State reports Clean or Merging. A conflicted merge leaves MERGE_HEAD in
// the git directory until the merge is completed or aborted.
func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.merging() {
		return StateMerging
	}
	return StateClean
}

func (r *Repository) merging() bool {
	_, err := os.Stat(r.gitPath("MERGE_HEAD"))
	return err == nil
}

func (r *Repository) gitPath(name string) string {
	return filepath.Join(r.path, ".git", name)
}

// AbortMerge resets an in-progress merge via the git executable. Legal only
// while the repository is mid-merge.
func (r *Repository) AbortMerge() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.merging() {
		return ErrNotMerging
	}

	cmd := exec.Command("git", "merge", "--abort")
	cmd.Dir = r.path
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gitsync: merge --abort: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
