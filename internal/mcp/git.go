package mcp

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sgx-labs/notevault/internal/logging"
)

// snapshotVault commits all pending vault changes after a mutating tool
// call. Best-effort: any failure is logged and swallowed, since the
// note files on disk are already durable.
func snapshotVault(vaultPath, toolName string) {
	gitRoot := findGitRoot(vaultPath)
	if gitRoot == "" {
		return
	}

	status, err := runGit(gitRoot, "status", "--porcelain")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return
		}
		logging.Debugf("git snapshot: status failed: %v", err)
		return
	}
	if strings.TrimSpace(status) == "" {
		return
	}

	if _, err := runGit(gitRoot, "add", "-A"); err != nil {
		logging.Debugf("git snapshot: add failed: %v", err)
		return
	}
	if _, err := runGit(gitRoot, "commit", "-m", "notevault: "+toolName); err != nil {
		logging.Debugf("git snapshot: commit failed: %v", err)
		return
	}
	logging.Debugf("git snapshot: committed after %s", toolName)
}

// findGitRoot walks up from startPath looking for a .git directory.
func findGitRoot(startPath string) string {
	dir, err := filepath.Abs(startPath)
	if err != nil {
		return ""
	}
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}
