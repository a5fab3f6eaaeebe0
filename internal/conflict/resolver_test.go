package conflict

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/partvault/partvault/internal/gitsync"
)

const (
	bomBase   = "R1,resistor,2\nR2,resistor,4\nC1,capacitor,1\n"
	bomOurs   = "R1,resistor,2\nR2,resistor,8\nC1,capacitor,1\n"
	bomTheirs = "R1,resistor,2\nR2,resistor,6\nC1,capacitor,1\n"
)

// conflictedRepo builds a repository mid-merge with one conflicted BOM file.
func conflictedRepo(t *testing.T) *gitsync.Repository {
	t.Helper()
	repo, err := gitsync.Init(t.TempDir(), gitsync.Options{AuthorName: "tester"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	commit := func(content, message string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(repo.Path(), "bom.csv"), []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := repo.CommitWithMetadata(message, nil, nil); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	commit(bomBase, "Base BOM")
	if err := repo.CreateBranch("feature"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	commit(bomOurs, "Bump R2 on main")
	if err := repo.CheckoutBranch("feature"); err != nil {
		t.Fatalf("checkout feature: %v", err)
	}
	commit(bomTheirs, "Bump R2 on feature")
	if err := repo.CheckoutBranch(gitsync.DefaultBranch); err != nil {
		t.Fatalf("checkout main: %v", err)
	}

	result, err := repo.MergeBranch("feature")
	if err != nil {
		t.Fatalf("MergeBranch: %v", err)
	}
	if !result.HasConflicts {
		t.Fatal("fixture merge did not conflict")
	}
	return repo
}

func TestDetect(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	conflicts, err := r.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflict count = %d, want 1", len(conflicts))
	}
	if conflicts[0].Path != "bom.csv" {
		t.Errorf("path = %q, want bom.csv", conflicts[0].Path)
	}
}

func TestResolveText_OursIsStagedContent(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.ResolveText("bom.csv", TextOurs); err != nil {
		t.Fatalf("ResolveText: %v", err)
	}

	// The resolution is our side's blob verbatim, not a re-render of the
	// marker file.
	content, err := repo.WorkingFile("bom.csv")
	if err != nil {
		t.Fatalf("WorkingFile: %v", err)
	}
	if content != bomOurs {
		t.Errorf("resolved content = %q, want ours %q", content, bomOurs)
	}

	conflicts, err := r.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("conflicts after resolution = %d, want 0", len(conflicts))
	}
}

func TestResolveText_Theirs(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.ResolveText("bom.csv", TextTheirs); err != nil {
		t.Fatalf("ResolveText: %v", err)
	}
	content, _ := repo.WorkingFile("bom.csv")
	if content != bomTheirs {
		t.Errorf("resolved content = %q, want theirs %q", content, bomTheirs)
	}
}

func TestResolveText_Union(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.ResolveText("bom.csv", TextUnion); err != nil {
		t.Fatalf("ResolveText: %v", err)
	}
	content, _ := repo.WorkingFile("bom.csv")
	if !strings.Contains(content, "R2,resistor,8") || !strings.Contains(content, "R2,resistor,6") {
		t.Errorf("union missing a side: %q", content)
	}
	if strings.Contains(content, "<<<<<<<") {
		t.Errorf("markers leaked: %q", content)
	}
	// Common lines appear once.
	if strings.Count(content, "R1,resistor,2") != 1 {
		t.Errorf("common line duplicated: %q", content)
	}
}

func TestResolveBOM_PreferSides(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)
	if err := r.ResolveBOM("bom.csv", BOMPreferOurs); err != nil {
		t.Fatalf("ResolveBOM(prefer-ours): %v", err)
	}
	content, _ := repo.WorkingFile("bom.csv")
	if content != bomOurs {
		t.Errorf("prefer-ours content = %q, want %q", content, bomOurs)
	}

	repo2 := conflictedRepo(t)
	r2 := NewResolver(repo2)
	if err := r2.ResolveBOM("bom.csv", BOMPreferTheirs); err != nil {
		t.Fatalf("ResolveBOM(prefer-theirs): %v", err)
	}
	content2, _ := repo2.WorkingFile("bom.csv")
	if content2 != bomTheirs {
		t.Errorf("prefer-theirs content = %q, want %q", content2, bomTheirs)
	}
}

func TestResolveBOM_MergeQuantities(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.ResolveBOM("bom.csv", BOMMergeQuantities); err != nil {
		t.Fatalf("ResolveBOM: %v", err)
	}
	content, _ := repo.WorkingFile("bom.csv")

	for _, want := range []string{
		"# <<< BOM conflict",
		"# --- ours",
		"R2,resistor,8",
		"# --- theirs",
		"R2,resistor,6",
		"# >>> end BOM conflict",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("banner output missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "<<<<<<< ") {
		t.Errorf("git markers leaked: %q", content)
	}
}

func TestResolve_NotConflicted(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	err := r.ResolveText("other.csv", TextOurs)
	if !errors.Is(err, ErrNotConflicted) {
		t.Errorf("resolve of unconflicted path = %v, want ErrNotConflicted", err)
	}
	err = r.ResolveBOM("other.csv", BOMPreferOurs)
	if !errors.Is(err, ErrNotConflicted) {
		t.Errorf("BOM resolve of unconflicted path = %v, want ErrNotConflicted", err)
	}
}

func TestResolveComplete_EndToEnd(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.ResolveBOM("bom.csv", BOMPreferTheirs); err != nil {
		t.Fatalf("ResolveBOM: %v", err)
	}
	hash, err := r.Complete("Merge feature into main")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if hash == "" {
		t.Error("merge commit hash empty")
	}
	if repo.State() != gitsync.StateClean {
		t.Error("repository still mid-merge")
	}
}

func TestAbort(t *testing.T) {
	repo := conflictedRepo(t)
	r := NewResolver(repo)

	if err := r.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if repo.State() != gitsync.StateClean {
		t.Error("repository still mid-merge after abort")
	}
}
