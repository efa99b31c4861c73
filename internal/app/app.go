// Package app wires the native side of the MarkReview shell: scope-checked
// filesystem access, allowlisted command execution, native dialogs via the
// desktop bridge, and the delayed launch document announcement.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yuta-ueno/markreview-oss/internal/config"
	"github.com/yuta-ueno/markreview-oss/internal/document"
	"github.com/yuta-ueno/markreview-oss/internal/files"
	"github.com/yuta-ueno/markreview-oss/internal/notify"
	"github.com/yuta-ueno/markreview-oss/internal/shell"
	"github.com/yuta-ueno/markreview-oss/internal/telemetry"
)

// DefaultShutdownTimeout controls graceful shutdown time for the app.
const DefaultShutdownTimeout = 5 * time.Second

const (
	capabilityDialog = "dialog"
	capabilityFiles  = "files"
	capabilityShell  = "shell"
)

// Report summarizes the started application for the frontend.
type Report struct {
	Ready             bool     `json:"ready"`
	Capabilities      []string `json:"capabilities"`
	LaunchDocument    string   `json:"launchDocument"`
	StartupDurationMS int64    `json:"startupDurationMs"`
}

// Application wires core dependencies for the MarkReview process.
type Application struct {
	logger     *slog.Logger
	cfg        config.Config
	launchArgs []string

	scope     *files.Scope
	documents *files.Service
	commands  *shell.Service
	watcher   *files.Watcher
	announcer *notify.Announcer

	telemetry      *telemetry.Recorder
	startupMetrics telemetry.StartupEvent

	changeMu       sync.Mutex
	changeHandler  files.ChangeHandler
	watchedTargets map[string]watchTarget
	watchedDirRefs map[string]int
}

// watchTarget maps one watched path onto the directory registered with the
// filesystem watcher. File targets watch their parent directory because
// editors commonly replace files instead of writing them in place.
type watchTarget struct {
	directory string
	fileOnly  bool
}

// New creates an application from environment configuration and the current
// process arguments.
func New() *Application {
	return NewWithConfig(config.FromEnv(), os.Args)
}

// NewWithConfig creates an application with explicit configuration and launch
// arguments. The first argument is the executable path and is never treated
// as a document.
func NewWithConfig(cfg config.Config, launchArgs []string) *Application {
	cfg = config.Validate(cfg)
	argsCopy := make([]string, len(launchArgs))
	copy(argsCopy, launchArgs)
	return &Application{
		logger:     cfg.Logger(),
		cfg:        cfg,
		launchArgs: argsCopy,
		telemetry:  telemetry.NewRecorder(),
	}
}

// Start registers the filesystem, shell and dialog capabilities and records
// startup metrics.
func (a *Application) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start context: %w", err)
	}
	startedAt := time.Now()

	scope := files.NewScope(scopeRoots(a.cfg)...)
	for _, argument := range a.launchDocumentCandidates() {
		if !document.IsSupportedPath(argument) {
			continue
		}
		if err := scope.AllowFile(argument); err != nil {
			a.logger.Warn("skipping unresolvable launch argument", "argument", argument, "error", err)
		}
	}
	a.scope = scope
	a.documents = files.NewService(scope)

	watcher, err := files.NewWatcher(a.cfg.WatchDebounce(), a.dispatchChange, a.logger)
	if err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}
	a.watcher = watcher
	a.watchedTargets = make(map[string]watchTarget)
	a.watchedDirRefs = make(map[string]int)

	a.commands = shell.NewService(shell.Options{
		Logger:          a.logger,
		AllowedCommands: a.cfg.AllowedCommands,
		Timeout:         a.cfg.ShellTimeout(),
		MaxOutputBytes:  a.cfg.MaxOutputBytes,
	})
	a.announcer = notify.NewAnnouncer(a.cfg.OpenDelay())

	a.startupMetrics = a.telemetry.MarkStartupComplete(startedAt)
	for _, capability := range a.capabilities() {
		a.logger.Info("capability registered", "capability", capability)
	}
	a.logger.Info(
		"application started",
		"scopeRoots", len(a.scope.Roots()),
		"launchArgs", len(a.launchArgs),
		"startupDurationMs", a.startupMetrics.Duration.Milliseconds(),
	)
	return nil
}

// Stop drops pending announcements and stops the file watcher.
func (a *Application) Stop(ctx context.Context) error {
	if a.announcer != nil {
		a.announcer.Close()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			return fmt.Errorf("stop file watcher: %w", err)
		}
	}
	return nil
}

// Report returns the started capability set and the pending launch document.
func (a *Application) Report(ctx context.Context) Report {
	launchDocument := ""
	if path, ok := document.FirstSupported(a.launchDocumentCandidates()); ok {
		launchDocument = path
	}
	return Report{
		Ready:             a.documents != nil && a.commands != nil,
		Capabilities:      a.capabilities(),
		LaunchDocument:    launchDocument,
		StartupDurationMS: a.startupMetrics.Duration.Milliseconds(),
	}
}

// CommandLineArgs returns the process arguments exactly as received,
// including the executable path.
func (a *Application) CommandLineArgs(ctx context.Context) []string {
	arguments := os.Args
	result := make([]string, len(arguments))
	copy(result, arguments)
	return result
}

// OnFileChange registers the sink receiving watched file change notices.
// Only one sink is active at a time.
func (a *Application) OnFileChange(handler files.ChangeHandler) {
	a.changeMu.Lock()
	defer a.changeMu.Unlock()
	a.changeHandler = handler
}

// AnnounceLaunchDocument schedules the delayed open announcement for the
// first supported document among the launch arguments. It returns the
// selected path and whether an announcement was scheduled.
func (a *Application) AnnounceLaunchDocument(ctx context.Context, deliver notify.DocumentHandler) (string, bool) {
	if a.announcer == nil {
		return "", false
	}

	path, ok := document.FirstSupported(a.launchDocumentCandidates())
	if !ok {
		a.logger.Debug("no supported document among launch arguments", "argumentCount", len(a.launchArgs))
		return "", false
	}

	if err := a.telemetry.MarkAnnouncementScheduled(path, time.Now().UTC()); err != nil {
		a.logger.Warn("record announcement schedule failed", "path", path, "error", err)
	}
	a.logger.Info(
		"launch document announcement scheduled",
		"path", path,
		"delayMs", a.announcer.Delay().Milliseconds(),
	)

	a.announcer.Schedule(ctx, path, func(announced string) {
		event, emitted, err := a.telemetry.MarkAnnouncementDelivered(announced, time.Now().UTC())
		if err == nil && emitted {
			a.logger.Info(
				"launch document announced",
				"path", announced,
				"latencyMs", event.Latency.Milliseconds(),
			)
		}
		if deliver != nil {
			deliver(announced)
		}
	})
	return path, true
}

// AnnounceDocument announces one externally provided document immediately.
// macOS open events and drag-and-drop arrive through here.
func (a *Application) AnnounceDocument(ctx context.Context, path string, deliver notify.DocumentHandler) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("announce document context: %w", err)
	}
	if a.scope == nil {
		return fmt.Errorf("filesystem scope not initialized")
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("document path is required")
	}
	if !document.IsSupportedPath(path) {
		return fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
	if err := a.scope.AllowFile(path); err != nil {
		return fmt.Errorf("admit document into scope: %w", err)
	}

	if err := a.telemetry.MarkAnnouncementScheduled(path, time.Now().UTC()); err != nil {
		a.logger.Warn("record announcement schedule failed", "path", path, "error", err)
	}
	if _, _, err := a.telemetry.MarkAnnouncementDelivered(path, time.Now().UTC()); err != nil {
		a.logger.Warn("record announcement delivery failed", "path", path, "error", err)
	}
	a.logger.Info("document announced", "path", path)
	if deliver != nil {
		deliver(path)
	}
	return nil
}

// AllowDocumentPath admits one user-selected file into the filesystem scope
// and returns its resolved path.
func (a *Application) AllowDocumentPath(path string) (string, error) {
	if a.scope == nil {
		return "", fmt.Errorf("filesystem scope not initialized")
	}
	if err := a.scope.AllowFile(path); err != nil {
		return "", err
	}
	resolved, err := a.scope.Check(path)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// AllowDirectoryRoot admits one user-selected directory into the filesystem
// scope and returns its resolved path.
func (a *Application) AllowDirectoryRoot(path string) (string, error) {
	if a.scope == nil {
		return "", fmt.Errorf("filesystem scope not initialized")
	}
	if err := a.scope.AllowRoot(path); err != nil {
		return "", err
	}
	resolved, err := a.scope.Check(path)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// ReadDocument reads one document inside the filesystem scope.
func (a *Application) ReadDocument(ctx context.Context, path string) (files.DocumentContent, error) {
	if a.documents == nil {
		return files.DocumentContent{}, fmt.Errorf("files service not initialized")
	}
	content, err := a.documents.ReadDocument(ctx, path)
	if err != nil {
		return files.DocumentContent{}, fmt.Errorf("read document: %w", err)
	}
	return content, nil
}

// WriteDocument writes one document inside the filesystem scope.
func (a *Application) WriteDocument(ctx context.Context, path string, content string) error {
	if a.documents == nil {
		return fmt.Errorf("files service not initialized")
	}
	if err := a.documents.WriteDocument(ctx, path, content); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// StatDocument returns metadata for one path inside the filesystem scope.
func (a *Application) StatDocument(ctx context.Context, path string) (files.FileInfo, error) {
	if a.documents == nil {
		return files.FileInfo{}, fmt.Errorf("files service not initialized")
	}
	info, err := a.documents.Stat(ctx, path)
	if err != nil {
		return files.FileInfo{}, fmt.Errorf("stat document: %w", err)
	}
	return info, nil
}

// DocumentExists reports whether a path inside the filesystem scope exists.
func (a *Application) DocumentExists(ctx context.Context, path string) (bool, error) {
	if a.documents == nil {
		return false, fmt.Errorf("files service not initialized")
	}
	exists, err := a.documents.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("document exists: %w", err)
	}
	return exists, nil
}

// ListDirectory lists the children of a directory inside the filesystem
// scope.
func (a *Application) ListDirectory(ctx context.Context, path string) ([]files.DirEntry, error) {
	if a.documents == nil {
		return nil, fmt.Errorf("files service not initialized")
	}
	entries, err := a.documents.ListDirectory(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	return entries, nil
}

// WatchPath begins change notifications for a file or directory inside the
// filesystem scope. Watching an already watched path is a no-op.
func (a *Application) WatchPath(ctx context.Context, path string) error {
	if a.watcher == nil {
		return fmt.Errorf("file watcher not initialized")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("watch path context: %w", err)
	}

	resolved, err := a.scope.Check(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("inspect watch target: %w", err)
	}

	target := watchTarget{directory: resolved}
	if !info.IsDir() {
		target = watchTarget{directory: filepath.Dir(resolved), fileOnly: true}
	}

	// The watcher never runs the change handler under its own lock, so
	// Add may be called while holding changeMu. Nothing is published
	// until Add succeeds.
	a.changeMu.Lock()
	if _, exists := a.watchedTargets[resolved]; exists {
		a.changeMu.Unlock()
		return nil
	}
	if a.watchedDirRefs[target.directory] == 0 {
		if err := a.watcher.Add(target.directory); err != nil {
			a.changeMu.Unlock()
			return fmt.Errorf("watch path: %w", err)
		}
	}
	a.watchedTargets[resolved] = target
	a.watchedDirRefs[target.directory]++
	a.changeMu.Unlock()

	a.logger.Info("watching path", "path", resolved, "directory", target.directory)
	return nil
}

// UnwatchPath stops change notifications for a watched path. Unknown paths
// are a no-op.
func (a *Application) UnwatchPath(ctx context.Context, path string) error {
	if a.watcher == nil {
		return fmt.Errorf("file watcher not initialized")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("unwatch path context: %w", err)
	}

	resolved, err := a.scope.Check(path)
	if err != nil {
		return err
	}

	a.changeMu.Lock()
	target, exists := a.watchedTargets[resolved]
	if !exists {
		a.changeMu.Unlock()
		return nil
	}
	delete(a.watchedTargets, resolved)
	a.watchedDirRefs[target.directory]--
	if a.watchedDirRefs[target.directory] <= 0 {
		delete(a.watchedDirRefs, target.directory)
		if err := a.watcher.Remove(target.directory); err != nil {
			a.changeMu.Unlock()
			return fmt.Errorf("unwatch path: %w", err)
		}
	}
	a.changeMu.Unlock()

	a.logger.Info("stopped watching path", "path", resolved)
	return nil
}

// OpenExternal hands a URL to the default browser or a scope-checked path to
// the platform's default application.
func (a *Application) OpenExternal(ctx context.Context, target string) error {
	if a.commands == nil {
		return fmt.Errorf("shell service not initialized")
	}

	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return fmt.Errorf("target is required")
	}
	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		if err := a.commands.OpenURL(ctx, trimmed); err != nil {
			return fmt.Errorf("open external url: %w", err)
		}
		return nil
	}

	resolved, err := a.scope.Check(trimmed)
	if err != nil {
		return err
	}
	if err := a.commands.OpenPath(ctx, resolved); err != nil {
		return fmt.Errorf("open external path: %w", err)
	}
	return nil
}

// RunCommand executes one allowlisted command, streaming output chunks to
// the provided handlers.
func (a *Application) RunCommand(
	ctx context.Context,
	request shell.RunRequest,
	onStdoutChunk shell.OutputChunkHandler,
	onStderrChunk shell.OutputChunkHandler,
) (shell.Result, error) {
	if a.commands == nil {
		return shell.Result{}, fmt.Errorf("shell service not initialized")
	}
	result, err := a.commands.Run(ctx, request, onStdoutChunk, onStderrChunk)
	if err != nil {
		return shell.Result{}, fmt.Errorf("run command: %w", err)
	}
	return result, nil
}

// AllowedCommands returns the sorted shell allowlist.
func (a *Application) AllowedCommands(ctx context.Context) []string {
	if a.commands == nil {
		return nil
	}
	return a.commands.AllowedCommands()
}

func (a *Application) capabilities() []string {
	capabilities := []string{capabilityDialog, capabilityFiles, capabilityShell}
	sort.Strings(capabilities)
	return capabilities
}

// launchDocumentCandidates returns the launch arguments that may name a
// document, skipping the executable path.
func (a *Application) launchDocumentCandidates() []string {
	if len(a.launchArgs) <= 1 {
		return nil
	}
	return a.launchArgs[1:]
}

func (a *Application) dispatchChange(change files.Change) {
	a.changeMu.Lock()
	handler := a.changeHandler
	matched := false
	for path, target := range a.watchedTargets {
		if target.fileOnly {
			if change.Path == path {
				matched = true
				break
			}
			continue
		}
		if withinDirectory(path, change.Path) {
			matched = true
			break
		}
	}
	a.changeMu.Unlock()

	if !matched || handler == nil {
		return
	}
	handler(change)
}

func withinDirectory(directory string, path string) bool {
	relative, err := filepath.Rel(directory, path)
	if err != nil {
		return false
	}
	if relative == ".." || strings.HasPrefix(filepath.ToSlash(relative), "../") {
		return false
	}
	return true
}

func scopeRoots(cfg config.Config) []string {
	roots := make([]string, 0, len(cfg.ExtraRoots)+2)
	if homeDir, err := os.UserHomeDir(); err == nil {
		roots = append(roots, homeDir)
	}
	roots = append(roots, os.TempDir())
	roots = append(roots, cfg.ExtraRoots...)
	return roots
}
