package gitsync

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitMetadata_Roundtrip(t *testing.T) {
	r := initTestRepo(t)

	if err := os.WriteFile(filepath.Join(r.Path(), "bom.csv"), []byte("R1,resistor,2\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	hash, err := r.CommitWithMetadata("Update BOM", nil, map[string]string{
		"part_id":  "10000",
		"revision": "2",
		"status":   "draft",
	})
	if err != nil {
		t.Fatalf("CommitWithMetadata: %v", err)
	}

	metadata, found, err := r.CommitMetadata(hash)
	if err != nil {
		t.Fatalf("CommitMetadata: %v", err)
	}
	if !found {
		t.Fatal("metadata trailer not found")
	}
	if metadata["part_id"] != "10000" || metadata["revision"] != "2" || metadata["status"] != "draft" {
		t.Errorf("metadata = %v", metadata)
	}
}

func TestCommitMetadata_Absent(t *testing.T) {
	r := initTestRepo(t)
	hash := writeAndCommit(t, r, "notes.txt", "plain\n", "Plain commit")

	metadata, found, err := r.CommitMetadata(hash)
	if err != nil {
		t.Fatalf("CommitMetadata: %v", err)
	}
	if found {
		t.Errorf("plain commit reported metadata: %v", metadata)
	}
}

func TestCommitWithMetadata_SpecificFiles(t *testing.T) {
	r := initTestRepo(t)

	for _, f := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(r.Path(), f), []byte(f+"\n"), 0644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	// Stage only a.txt; b.txt stays untracked.
	if _, err := r.CommitWithMetadata("Add a", []string{"a.txt"}, nil); err != nil {
		t.Fatalf("CommitWithMetadata: %v", err)
	}

	// The second commit picks up the leftover file.
	hash, err := r.CommitWithMetadata("Add b", []string{"b.txt"}, nil)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != hash {
		t.Errorf("HEAD = %s, want %s", head, hash)
	}
}
