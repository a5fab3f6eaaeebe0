// Package lfs manages large-file-storage tracking for binary design
// artifacts.
package lfs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Manager installs LFS tracking patterns and pulls LFS objects for one
// repository. It carries no lifecycle logic.
type Manager struct {
	repoPath string
}

// NewManager returns a Manager for the repository at repoPath.
func NewManager(repoPath string) *Manager {
	return &Manager{repoPath: repoPath}
}

// TrackPatterns appends LFS filter rules to .gitattributes for each pattern
// not already tracked. Idempotent.
func (m *Manager) TrackPatterns(patterns []string) error {
	path := filepath.Join(m.repoPath, ".gitattributes")

	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("lfs: read .gitattributes: %w", err)
	}

	var added []string
	for _, pattern := range patterns {
		rule := pattern + " filter=lfs diff=lfs merge=lfs -text"
		if strings.Contains(existing, rule) {
			continue
		}
		added = append(added, rule)
	}
	if len(added) == 0 {
		return nil
	}

	content := existing
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(added, "\n") + "\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("lfs: write .gitattributes: %w", err)
	}
	return nil
}

// PullObjects fetches LFS objects for the current checkout via the git-lfs
// executable.
func (m *Manager) PullObjects() error {
	cmd := exec.Command("git", "lfs", "pull")
	cmd.Dir = m.repoPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("lfs: pull: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
