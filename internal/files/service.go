package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yuta-ueno/markreview-oss/internal/document"
)

// DocumentContent is one read document with its metadata.
type DocumentContent struct {
	Path       string    `json:"path"`
	Content    string    `json:"content"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// FileInfo describes one path without reading it.
type FileInfo struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
	IsDir      bool      `json:"isDir"`
}

// DirEntry is one child of a listed directory. Supported marks entries
// the viewer can open.
type DirEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDir     bool   `json:"isDir"`
	Supported bool   `json:"supported"`
}

// Service performs scope-checked filesystem operations.
type Service struct {
	scope *Scope
}

// NewService creates a filesystem service bound to a scope.
func NewService(scope *Scope) *Service {
	return &Service{scope: scope}
}

// ReadDocument reads one file inside the scope.
func (s *Service) ReadDocument(ctx context.Context, path string) (DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return DocumentContent{}, fmt.Errorf("read document context: %w", err)
	}
	resolved, err := s.scope.Check(path)
	if err != nil {
		return DocumentContent{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return DocumentContent{}, fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return DocumentContent{}, fmt.Errorf("path is a directory, not a file")
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return DocumentContent{}, fmt.Errorf("read file: %w", err)
	}
	return DocumentContent{
		Path:       resolved,
		Content:    string(content),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// WriteDocument writes content to a file inside the scope. The parent
// directory must already exist; files are created or truncated.
func (s *Service) WriteDocument(ctx context.Context, path string, content string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write document context: %w", err)
	}
	resolved, err := s.scope.Check(path)
	if err != nil {
		return err
	}
	parentInfo, err := os.Stat(filepath.Dir(resolved))
	if err != nil {
		return fmt.Errorf("inspect parent directory: %w", err)
	}
	if !parentInfo.IsDir() {
		return fmt.Errorf("parent path is not a directory")
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Stat returns metadata for one path inside the scope.
func (s *Service) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, fmt.Errorf("stat context: %w", err)
	}
	resolved, err := s.scope.Check(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return FileInfo{}, fmt.Errorf("inspect path: %w", err)
	}
	return FileInfo{
		Path:       resolved,
		Name:       info.Name(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		IsDir:      info.IsDir(),
	}, nil
}

// Exists reports whether a path inside the scope exists.
func (s *Service) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("exists context: %w", err)
	}
	resolved, err := s.scope.Check(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect path: %w", err)
	}
	return true, nil
}

// ListDirectory returns the direct children of a directory inside the
// scope, sorted by name.
func (s *Service) ListDirectory(ctx context.Context, path string) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list directory context: %w", err)
	}
	resolved, err := s.scope.Check(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("inspect directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}

	children, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	entries := make([]DirEntry, 0, len(children))
	for _, child := range children {
		entries = append(entries, DirEntry{
			Name:      child.Name(),
			Path:      filepath.Join(resolved, child.Name()),
			IsDir:     child.IsDir(),
			Supported: !child.IsDir() && document.IsSupportedPath(child.Name()),
		})
	}
	return entries, nil
}
