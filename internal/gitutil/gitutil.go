// Package gitutil resolves a project's git worktree root, used to anchor
// hastemap's roots and cache directory consistently regardless of which
// subdirectory the CLI was invoked from.
package gitutil

import (
	"os/exec"
	"strings"
)

// WorktreeRoot returns the git worktree root containing projectPath,
// falling back to projectPath itself if it isn't inside a git repository.
// Grounded on gitOps.GetWorktreeRoot, trimmed to the one operation
// hastemap needs out of the teacher's full git.Operations surface
// (branch/remote/ancestor lookups belong to cortex's branch-aware cache,
// which haste has no equivalent of).
func WorktreeRoot(projectPath string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return projectPath
	}
	return strings.TrimSpace(string(output))
}
