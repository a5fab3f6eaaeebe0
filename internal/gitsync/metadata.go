package gitsync

import (
	"encoding/json"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// metadataPrefix introduces the machine-readable trailer appended after the
// human commit message. Kept in the message rather than the tree so the
// channel never alters file content.
const metadataPrefix = "PLM-Metadata: "

// CommitWithMetadata stages the given files (all tracked changes when files
// is empty) and commits them with a PLM-Metadata trailer carrying the given
// key/value pairs. Returns the new commit hash.
func (r *Repository) CommitWithMetadata(message string, files []string, metadata map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.merging() {
		return "", ErrMergeInProgress
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitsync: worktree: %w", err)
	}

	if len(files) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return "", fmt.Errorf("gitsync: stage all: %w", err)
		}
	} else {
		for _, f := range files {
			if _, err := wt.Add(f); err != nil {
				return "", fmt.Errorf("gitsync: stage %s: %w", f, err)
			}
		}
	}

	full := message
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("gitsync: encode metadata: %w", err)
		}
		full = message + "\n\n" + metadataPrefix + string(encoded)
	}

	hash, err := wt.Commit(full, &git.CommitOptions{
		Author:            r.signature(),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("gitsync: commit: %w", err)
	}
	return hash.String(), nil
}

// CommitMetadata extracts the PLM-Metadata trailer of a commit. The second
// return value reports whether the commit carries one; its absence is not
// an error.
func (r *Repository) CommitMetadata(hash string) (map[string]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, false, fmt.Errorf("gitsync: load commit %s: %w", hash, err)
	}

	idx := strings.LastIndex(commit.Message, metadataPrefix)
	if idx < 0 {
		return nil, false, nil
	}

	line := commit.Message[idx+len(metadataPrefix):]
	if end := strings.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}

	var metadata map[string]string
	if err := json.Unmarshal([]byte(line), &metadata); err != nil {
		return nil, false, fmt.Errorf("gitsync: decode metadata of %s: %w", hash, err)
	}
	return metadata, true, nil
}
