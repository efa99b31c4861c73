package acceptance

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yuta-ueno/markreview-oss/internal/app"
	"github.com/yuta-ueno/markreview-oss/internal/config"
	"github.com/yuta-ueno/markreview-oss/internal/files"
	"github.com/yuta-ueno/markreview-oss/internal/shell"
	"github.com/yuta-ueno/markreview-oss/internal/testutil"
)

func TestLaunchAcceptanceSuite(t *testing.T) {
	t.Run("LaunchDocumentAnnouncedAfterDelay", func(t *testing.T) {
		docPath := writeDocument(t, "Release Notes.md", "# Release Notes\n")
		cfg := config.Defaults()
		cfg.OpenDelayMS = 200
		application := startApplication(t, cfg, docPath)

		waitCtx, waitCancel := testutil.TestRunContext(t)
		defer waitCancel()

		delivered := make(chan string, 1)
		scheduledAt := time.Now()
		announced, ok := application.AnnounceLaunchDocument(waitCtx, func(path string) {
			delivered <- path
		})
		if !ok {
			t.Fatal("AnnounceLaunchDocument() ok = false, want true")
		}
		if got, want := announced, docPath; got != want {
			t.Fatalf("announced = %q, want %q", got, want)
		}

		select {
		case path := <-delivered:
			if got, want := path, docPath; got != want {
				t.Fatalf("delivered path = %q, want %q", got, want)
			}
			if elapsed := time.Since(scheduledAt); elapsed < 190*time.Millisecond {
				t.Fatalf("delivered after %v, want at least the configured delay", elapsed)
			}
		case <-waitCtx.Done():
			t.Fatal("launch document was not announced before the deadline")
		}
	})

	t.Run("NoSupportedLaunchDocument", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.OpenDelayMS = 80
		application := startApplication(t, cfg, filepath.Join(t.TempDir(), "chart.png"), "--verbose")

		waitCtx, waitCancel := testutil.TestRunContext(t)
		defer waitCancel()

		announced, ok := application.AnnounceLaunchDocument(waitCtx, func(path string) {
			t.Errorf("unexpected announcement for %q", path)
		})
		if ok {
			t.Fatalf("announced %q, want no announcement", announced)
		}

		time.Sleep(150 * time.Millisecond)
	})

	t.Run("DocumentLifecycle", func(t *testing.T) {
		application := startApplication(t, config.Defaults())

		ctx, cancel := testutil.TestRunContext(t)
		defer cancel()

		dir := t.TempDir()
		path := filepath.Join(dir, "guide.md")
		if err := application.WriteDocument(ctx, path, "# Guide\n"); err != nil {
			t.Fatalf("WriteDocument() error = %v", err)
		}

		content, err := application.ReadDocument(ctx, path)
		if err != nil {
			t.Fatalf("ReadDocument() error = %v", err)
		}
		if got, want := content.Content, "# Guide\n"; got != want {
			t.Fatalf("content = %q, want %q", got, want)
		}

		info, err := application.StatDocument(ctx, path)
		if err != nil {
			t.Fatalf("StatDocument() error = %v", err)
		}
		if got, want := info.Name, "guide.md"; got != want {
			t.Fatalf("info.Name = %q, want %q", got, want)
		}

		exists, err := application.DocumentExists(ctx, path)
		if err != nil {
			t.Fatalf("DocumentExists() error = %v", err)
		}
		if !exists {
			t.Fatal("exists = false, want true")
		}

		entries, err := application.ListDirectory(ctx, dir)
		if err != nil {
			t.Fatalf("ListDirectory() error = %v", err)
		}
		if got, want := len(entries), 1; got != want {
			t.Fatalf("len(entries) = %d, want %d", got, want)
		}
		if got, want := entries[0].Name, "guide.md"; got != want {
			t.Fatalf("entries[0].Name = %q, want %q", got, want)
		}
		if !entries[0].Supported {
			t.Fatal("entries[0].Supported = false, want true")
		}
	})

	t.Run("WatchedDocumentChanges", func(t *testing.T) {
		docPath := writeDocument(t, "watched.md", "# Watched\n")
		cfg := config.Defaults()
		cfg.WatchDebounceMS = 60
		application := startApplication(t, cfg)

		changes := make(chan files.Change, 4)
		application.OnFileChange(func(change files.Change) {
			select {
			case changes <- change:
			default:
			}
		})

		waitCtx, waitCancel := testutil.TestRunContext(t)
		defer waitCancel()
		if err := application.WatchPath(waitCtx, docPath); err != nil {
			t.Fatalf("WatchPath() error = %v", err)
		}

		if err := os.WriteFile(docPath, []byte("# Watched\n\nEdited.\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		select {
		case change := <-changes:
			if got, want := canonicalPath(change.Path), canonicalPath(docPath); got != want {
				t.Fatalf("change.Path = %q, want %q", got, want)
			}
		case <-waitCtx.Done():
			t.Fatal("watched document change was not delivered before the deadline")
		}

		if err := application.UnwatchPath(waitCtx, docPath); err != nil {
			t.Fatalf("UnwatchPath() error = %v", err)
		}
	})

	t.Run("AllowlistedCommandExecution", func(t *testing.T) {
		requireGoToolchain(t)

		cfg := config.Defaults()
		cfg.AllowedCommands = []string{"go"}
		application := startApplication(t, cfg)

		ctx, cancel := testutil.TestRunContext(t)
		defer cancel()

		result, err := application.RunCommand(ctx, shell.RunRequest{
			Command: "go",
			Args:    []string{"env", "GOOS"},
		}, nil, nil)
		if err != nil {
			t.Fatalf("RunCommand() error = %v", err)
		}
		if got, want := result.ExitCode, 0; got != want {
			t.Fatalf("ExitCode = %d, want %d", got, want)
		}
		if strings.TrimSpace(result.Stdout) == "" {
			t.Fatal("Stdout is empty, want the GOOS value")
		}

		if _, err := application.RunCommand(ctx, shell.RunRequest{
			Command: "git",
			Args:    []string{"status"},
		}, nil, nil); err == nil {
			t.Fatal("RunCommand(git) error = nil, want allowlist rejection")
		}
	})

	t.Run("ReportDescribesCapabilities", func(t *testing.T) {
		docPath := writeDocument(t, "README.md", "# MarkReview\n")
		application := startApplication(t, config.Defaults(), docPath)

		ctx, cancel := testutil.TestRunContext(t)
		defer cancel()

		report := application.Report(ctx)
		if !report.Ready {
			t.Fatal("report.Ready = false, want true")
		}
		if got, want := strings.Join(report.Capabilities, ","), "dialog,files,shell"; got != want {
			t.Fatalf("report.Capabilities = %q, want %q", got, want)
		}
		if got, want := report.LaunchDocument, docPath; got != want {
			t.Fatalf("report.LaunchDocument = %q, want %q", got, want)
		}

		args := application.CommandLineArgs(ctx)
		if len(args) == 0 {
			t.Fatal("CommandLineArgs() returned no arguments")
		}
		if got, want := args[0], os.Args[0]; got != want {
			t.Fatalf("args[0] = %q, want %q", got, want)
		}
	})
}

func startApplication(t *testing.T, cfg config.Config, documentArgs ...string) *app.Application {
	t.Helper()

	args := append([]string{"markreview"}, documentArgs...)
	application := app.NewWithConfig(cfg, args)
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.DefaultShutdownTimeout)
		defer cancel()
		if err := application.Stop(shutdownCtx); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return application
}

func writeDocument(t *testing.T, name string, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
	return path
}

func requireGoToolchain(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go binary not available")
	}
}

func canonicalPath(value string) string {
	cleaned := filepath.Clean(value)
	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		return cleaned
	}
	return filepath.Clean(resolved)
}
