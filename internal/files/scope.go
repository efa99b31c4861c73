// Package files implements the filesystem capability exposed to the
// frontend: scope-checked document access and change watching.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Scope restricts filesystem operations to allowed directory roots plus
// individually allowed files. Launch arguments and dialog selections are
// allowed dynamically at runtime.
type Scope struct {
	mu    sync.RWMutex
	roots []string
	files map[string]struct{}
}

// NewScope creates a scope over the provided directory roots. Roots that
// cannot be resolved are skipped.
func NewScope(roots ...string) *Scope {
	scope := &Scope{
		files: make(map[string]struct{}),
	}
	for _, root := range roots {
		_ = scope.AllowRoot(root)
	}
	return scope
}

// AllowRoot adds a directory root to the scope.
func (s *Scope) AllowRoot(root string) error {
	resolved, err := resolvePath(root)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roots {
		if existing == resolved {
			return nil
		}
	}
	s.roots = append(s.roots, resolved)
	return nil
}

// AllowFile adds a single file to the scope.
func (s *Scope) AllowFile(path string) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[resolved] = struct{}{}
	return nil
}

// Check resolves path and verifies it is inside the scope. The resolved
// absolute path is returned for use by the caller.
func (s *Scope) Check(path string) (string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[resolved]; ok {
		return resolved, nil
	}
	for _, root := range s.roots {
		if containsPath(root, resolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("path %q is outside the allowed filesystem scope", path)
}

// Roots returns a copy of the allowed directory roots.
func (s *Scope) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roots := make([]string, len(s.roots))
	copy(roots, s.roots)
	return roots
}

func containsPath(root string, path string) bool {
	relative, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if relative == ".." || strings.HasPrefix(filepath.ToSlash(relative), "../") {
		return false
	}
	return true
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is required")
	}

	if strings.HasPrefix(trimmed, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve user home: %w", err)
		}
		switch {
		case trimmed == "~":
			trimmed = homeDir
		case strings.HasPrefix(trimmed, "~/"):
			trimmed = filepath.Join(homeDir, trimmed[2:])
		default:
			return "", fmt.Errorf("unsupported home path %q (use ~/...)", path)
		}
	}

	absolutePath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return filepath.Clean(absolutePath), nil
}
