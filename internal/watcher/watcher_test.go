package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWalkDirsSkipsHidden(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"projects", "projects/active", ".notevault", ".git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	dirs := walkDirs(root)

	want := map[string]bool{
		root: true,
		filepath.Join(root, "projects"):           true,
		filepath.Join(root, "projects", "active"): true,
	}
	if len(dirs) != len(want) {
		t.Fatalf("dirs = %v", dirs)
	}
	for _, d := range dirs {
		if !want[d] {
			t.Errorf("unexpected watched dir %s", d)
		}
	}
}

func TestHiddenPath(t *testing.T) {
	root := "/home/user/notes"
	cases := []struct {
		path string
		want bool
	}{
		{"/home/user/notes/a.md", false},
		{"/home/user/notes/projects/a.md", false},
		{"/home/user/notes/.notevault/index.db", true},
		{"/home/user/notes/projects/.hidden/a.md", true},
		{"/home/user/notes/.a.md.tmp.123", true},
	}
	for _, c := range cases {
		if got := hiddenPath(root, c.path); got != c.want {
			t.Errorf("hiddenPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestHiddenPathVaultUnderHiddenDir(t *testing.T) {
	// Only elements below the root count; a vault living inside a hidden
	// directory is not itself hidden.
	root := "/home/user/.dotfiles/notes"
	if hiddenPath(root, "/home/user/.dotfiles/notes/a.md") {
		t.Error("note directly under the root should not be hidden")
	}
}
