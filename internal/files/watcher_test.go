package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRequiresHandler(t *testing.T) {
	t.Parallel()

	if _, err := NewWatcher(50*time.Millisecond, nil, nil); err == nil {
		t.Fatal("NewWatcher(nil handler) error = nil, want non-nil")
	}
}

func TestWatcherDeliversDebouncedChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan Change, 16)
	watcher, err := NewWatcher(60*time.Millisecond, func(change Change) {
		changes <- change
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	target := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(target, []byte("# one"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case change := <-changes:
			if change.Path != target {
				// Another temp-dir artifact; keep waiting for ours.
				continue
			}
			if change.Op != "create" && change.Op != "write" {
				t.Fatalf("change.Op = %q, want create or write", change.Op)
			}
			return
		case <-deadline:
			t.Fatal("no change delivered for written file")
		}
	}
}

func TestWatcherCollapsesBursts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan Change, 16)
	watcher, err := NewWatcher(80*time.Millisecond, func(change Change) {
		changes <- change
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	target := filepath.Join(dir, "burst.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte("content"), 0o644); err != nil {
			t.Fatalf("write test file: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered for burst")
	}

	// A settled burst produces no trailing deliveries for the same path.
	select {
	case change := <-changes:
		if change.Path == target {
			t.Fatalf("unexpected second delivery for %s", target)
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherAddIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	watcher, err := NewWatcher(50*time.Millisecond, func(Change) {}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := watcher.Add(dir); err != nil {
		t.Fatalf("Add() second call error = %v", err)
	}
	if err := watcher.Remove(dir); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := watcher.Remove(dir); err != nil {
		t.Fatalf("Remove() second call error = %v", err)
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	watcher, err := NewWatcher(50*time.Millisecond, func(Change) {}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("Close() second call error = %v", err)
	}
	if err := watcher.Add(t.TempDir()); err == nil {
		t.Fatal("Add() error = nil on closed watcher, want non-nil")
	}
}
