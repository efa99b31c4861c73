package files

import (
	"path/filepath"
	"testing"
)

func TestScopeAllowsPathsUnderRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	scope := NewScope(root)

	resolved, err := scope.Check(filepath.Join(root, "docs", "notes.md"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got, want := resolved, filepath.Join(root, "docs", "notes.md"); got != want {
		t.Fatalf("resolved = %q, want %q", got, want)
	}
}

func TestScopeAllowsRootItself(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	scope := NewScope(root)

	if _, err := scope.Check(root); err != nil {
		t.Fatalf("Check(root) error = %v", err)
	}
}

func TestScopeRejectsPathsOutsideRoots(t *testing.T) {
	t.Parallel()

	scope := NewScope(t.TempDir())
	outside := filepath.Join(t.TempDir(), "secret.md")

	if _, err := scope.Check(outside); err == nil {
		t.Fatal("Check() error = nil for out-of-scope path, want non-nil")
	}
}

func TestScopeRejectsParentTraversal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	scope := NewScope(root)

	if _, err := scope.Check(filepath.Join(root, "..", "escape.md")); err == nil {
		t.Fatal("Check() error = nil for traversal path, want non-nil")
	}
}

func TestScopeAllowFileGrantsSinglePath(t *testing.T) {
	t.Parallel()

	scope := NewScope(t.TempDir())
	outsideDir := t.TempDir()
	granted := filepath.Join(outsideDir, "launch.md")
	sibling := filepath.Join(outsideDir, "other.md")

	if err := scope.AllowFile(granted); err != nil {
		t.Fatalf("AllowFile() error = %v", err)
	}
	if _, err := scope.Check(granted); err != nil {
		t.Fatalf("Check(granted) error = %v", err)
	}
	if _, err := scope.Check(sibling); err == nil {
		t.Fatal("Check(sibling) error = nil, want non-nil")
	}
}

func TestScopeAllowRootDeduplicates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	scope := NewScope(root)
	if err := scope.AllowRoot(root); err != nil {
		t.Fatalf("AllowRoot() error = %v", err)
	}
	if got, want := len(scope.Roots()), 1; got != want {
		t.Fatalf("len(Roots()) = %d, want %d", got, want)
	}
}

func TestScopeRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	scope := NewScope(t.TempDir())
	if _, err := scope.Check("   "); err == nil {
		t.Fatal("Check() error = nil for empty path, want non-nil")
	}
	if err := scope.AllowFile(""); err == nil {
		t.Fatal("AllowFile() error = nil for empty path, want non-nil")
	}
}
