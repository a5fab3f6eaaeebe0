// Package hooks installs PLM lifecycle hook scripts into a repository.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager installs hook scripts for one repository. It carries no lifecycle
// logic.
type Manager struct {
	repoPath string
}

// NewManager returns a Manager for the repository at repoPath.
func NewManager(repoPath string) *Manager {
	return &Manager{repoPath: repoPath}
}

// defaultHooks are the lifecycle automation scripts installed at repository
// initialization. The pre-commit hook blocks commits of unresolved conflict
// markers; the post-commit hook is a notification stub.
var defaultHooks = map[string]string{
	"pre-commit": `#!/bin/sh
# Installed by PartVault. Reject commits containing conflict markers.
if git diff --cached --name-only | xargs -r grep -l '^<<<<<<< ' 2>/dev/null; then
    echo "partvault: refusing to commit unresolved conflict markers" >&2
    exit 1
fi
exit 0
`,
	"post-commit": `#!/bin/sh
# Installed by PartVault. Hook point for downstream notification tooling.
exit 0
`,
}

// InstallDefaultHooks writes the default PLM hook scripts into .git/hooks,
// overwriting previous PartVault-installed copies.
func (m *Manager) InstallDefaultHooks() error {
	dir := filepath.Join(m.repoPath, ".git", "hooks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("hooks: create hooks dir: %w", err)
	}
	for name, script := range defaultHooks {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(script), 0755); err != nil {
			return fmt.Errorf("hooks: install %s: %w", name, err)
		}
	}
	return nil
}
