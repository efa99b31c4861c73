// Package desktop binds the application to the Wails runtime: frontend
// method bindings, native dialogs and named events.
package desktop

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yuta-ueno/markreview-oss/internal/app"
	"github.com/yuta-ueno/markreview-oss/internal/document"
	"github.com/yuta-ueno/markreview-oss/internal/files"
	"github.com/yuta-ueno/markreview-oss/internal/notify"
	"github.com/yuta-ueno/markreview-oss/internal/shell"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

const documentOpenEventName = "markreview:document:open"
const fileChangeEventName = "markreview:files:changed"
const commandStdoutChunkEventName = "markreview:command:stdout-chunk"
const commandStderrChunkEventName = "markreview:command:stderr-chunk"

// DocumentOpenEvent asks the frontend to open one document.
type DocumentOpenEvent struct {
	Path string `json:"path"`
}

// FileChangeEvent notifies the frontend about one watched file change.
type FileChangeEvent struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// CommandChunkEvent contains streamed output payload for one command run.
type CommandChunkEvent struct {
	Command string `json:"command"`
	Chunk   string `json:"chunk"`
}

// ApplicationService captures app methods used by Wails bindings.
type ApplicationService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Report(ctx context.Context) app.Report
	CommandLineArgs(ctx context.Context) []string
	OnFileChange(handler files.ChangeHandler)
	AnnounceLaunchDocument(ctx context.Context, deliver notify.DocumentHandler) (string, bool)
	AnnounceDocument(ctx context.Context, path string, deliver notify.DocumentHandler) error
	AllowDocumentPath(path string) (string, error)
	AllowDirectoryRoot(path string) (string, error)
	ReadDocument(ctx context.Context, path string) (files.DocumentContent, error)
	WriteDocument(ctx context.Context, path string, content string) error
	StatDocument(ctx context.Context, path string) (files.FileInfo, error)
	DocumentExists(ctx context.Context, path string) (bool, error)
	ListDirectory(ctx context.Context, path string) ([]files.DirEntry, error)
	WatchPath(ctx context.Context, path string) error
	UnwatchPath(ctx context.Context, path string) error
	OpenExternal(ctx context.Context, target string) error
	RunCommand(
		ctx context.Context,
		request shell.RunRequest,
		onStdoutChunk shell.OutputChunkHandler,
		onStderrChunk shell.OutputChunkHandler,
	) (shell.Result, error)
	AllowedCommands(ctx context.Context) []string
}

// WailsBridge exposes backend methods to the Wails frontend.
type WailsBridge struct {
	app ApplicationService

	mu                 sync.RWMutex
	ctx                context.Context
	started            bool
	domReady           bool
	startupErr         error
	shutdownErr        error
	pendingSystemOpens []string

	openDirectoryDialog func(ctx context.Context) (string, error)
	openFileDialog      func(ctx context.Context) (string, error)
	saveFileDialog      func(ctx context.Context) (string, error)
	showMessageDialog   func(ctx context.Context, kind string, title string, message string) (string, error)
	emitEvent           func(ctx context.Context, eventName string, payload interface{})
}

// NewWailsBridge creates a binding bridge for a running app service.
func NewWailsBridge(app ApplicationService) *WailsBridge {
	return &WailsBridge{
		app:                 app,
		ctx:                 context.Background(),
		openDirectoryDialog: defaultOpenDirectoryDialog,
		openFileDialog:      defaultOpenFileDialog,
		saveFileDialog:      defaultSaveFileDialog,
		showMessageDialog:   defaultShowMessageDialog,
		emitEvent:           defaultEmitEvent,
	}
}

// Startup is called by Wails at app startup. On success it wires watched
// file changes to frontend events and schedules the delayed launch document
// announcement.
func (b *WailsBridge) Startup(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.started = true
	b.startupErr = b.app.Start(ctx)
	startupErr := b.startupErr
	b.mu.Unlock()

	if startupErr != nil {
		return
	}

	b.app.OnFileChange(func(change files.Change) {
		b.emit(fileChangeEventName, FileChangeEvent{
			Path: change.Path,
			Op:   change.Op,
		})
	})
	b.app.AnnounceLaunchDocument(ctx, func(path string) {
		b.emit(documentOpenEventName, DocumentOpenEvent{Path: path})
	})
}

// DomReady is called by Wails once the frontend has loaded. Documents the
// operating system handed over before this point are announced now.
func (b *WailsBridge) DomReady(ctx context.Context) {
	b.mu.Lock()
	b.domReady = true
	pending := b.pendingSystemOpens
	b.pendingSystemOpens = nil
	b.mu.Unlock()

	for _, path := range pending {
		_ = b.announceSystemDocument(ctx, path)
	}
}

// Shutdown is called by Wails at app shutdown.
func (b *WailsBridge) Shutdown(ctx context.Context) {
	if err := b.app.Stop(ctx); err != nil {
		b.mu.Lock()
		b.shutdownErr = fmt.Errorf("shutdown app: %w", err)
		b.mu.Unlock()
	}
}

// StartupError returns the startup error string if startup failed.
func (b *WailsBridge) StartupError() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.startupErr == nil {
		return ""
	}
	return b.startupErr.Error()
}

// Report returns backend readiness and capabilities for the frontend.
func (b *WailsBridge) Report() (app.Report, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return app.Report{}, err
	}
	return b.app.Report(ctx), nil
}

// CommandLineArgs returns the process arguments exactly as received.
func (b *WailsBridge) CommandLineArgs() ([]string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return nil, err
	}
	return b.app.CommandLineArgs(ctx), nil
}

// ReadDocument reads one document inside the filesystem scope.
func (b *WailsBridge) ReadDocument(path string) (files.DocumentContent, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return files.DocumentContent{}, err
	}
	content, err := b.app.ReadDocument(ctx, path)
	if err != nil {
		return files.DocumentContent{}, fmt.Errorf("read document: %w", err)
	}
	return content, nil
}

// WriteDocument writes one document inside the filesystem scope.
func (b *WailsBridge) WriteDocument(path string, content string) error {
	ctx, err := b.requestContext()
	if err != nil {
		return err
	}
	if err := b.app.WriteDocument(ctx, path, content); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// StatDocument returns metadata for one scope-checked path.
func (b *WailsBridge) StatDocument(path string) (files.FileInfo, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return files.FileInfo{}, err
	}
	info, err := b.app.StatDocument(ctx, path)
	if err != nil {
		return files.FileInfo{}, fmt.Errorf("stat document: %w", err)
	}
	return info, nil
}

// DocumentExists reports whether a scope-checked path exists.
func (b *WailsBridge) DocumentExists(path string) (bool, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return false, err
	}
	exists, err := b.app.DocumentExists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("document exists: %w", err)
	}
	return exists, nil
}

// ListDirectory lists the children of a scope-checked directory.
func (b *WailsBridge) ListDirectory(path string) ([]files.DirEntry, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return nil, err
	}
	entries, err := b.app.ListDirectory(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	return entries, nil
}

// WatchPath begins change events for a file or directory.
func (b *WailsBridge) WatchPath(path string) error {
	ctx, err := b.requestContext()
	if err != nil {
		return err
	}
	if err := b.app.WatchPath(ctx, path); err != nil {
		return fmt.Errorf("watch path: %w", err)
	}
	return nil
}

// UnwatchPath stops change events for a watched path.
func (b *WailsBridge) UnwatchPath(path string) error {
	ctx, err := b.requestContext()
	if err != nil {
		return err
	}
	if err := b.app.UnwatchPath(ctx, path); err != nil {
		return fmt.Errorf("unwatch path: %w", err)
	}
	return nil
}

// ChooseDocument opens a native file picker filtered to viewer documents.
// The selected file is admitted into the filesystem scope. An empty string
// means the dialog was canceled.
func (b *WailsBridge) ChooseDocument() (string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return "", err
	}
	path, err := b.openFileDialog(ctx)
	if err != nil {
		return "", fmt.Errorf("choose document: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	resolved, err := b.app.AllowDocumentPath(path)
	if err != nil {
		return "", fmt.Errorf("admit chosen document: %w", err)
	}
	return resolved, nil
}

// ChooseDirectory opens a native directory picker. The selected directory is
// admitted into the filesystem scope as a root.
func (b *WailsBridge) ChooseDirectory() (string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return "", err
	}
	path, err := b.openDirectoryDialog(ctx)
	if err != nil {
		return "", fmt.Errorf("choose directory: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	resolved, err := b.app.AllowDirectoryRoot(path)
	if err != nil {
		return "", fmt.Errorf("admit chosen directory: %w", err)
	}
	return resolved, nil
}

// SaveDocumentAs opens a native save dialog and admits the chosen target
// into the filesystem scope.
func (b *WailsBridge) SaveDocumentAs() (string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return "", err
	}
	path, err := b.saveFileDialog(ctx)
	if err != nil {
		return "", fmt.Errorf("save document as: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	resolved, err := b.app.AllowDocumentPath(path)
	if err != nil {
		return "", fmt.Errorf("admit save target: %w", err)
	}
	return resolved, nil
}

// ShowMessageDialog shows a native message dialog and returns the selected
// button label. Kind is one of info, warning, error or question.
func (b *WailsBridge) ShowMessageDialog(kind string, title string, message string) (string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return "", err
	}
	selection, err := b.showMessageDialog(ctx, kind, title, message)
	if err != nil {
		return "", fmt.Errorf("show message dialog: %w", err)
	}
	return selection, nil
}

// OpenExternal hands a URL to the default browser or a scope-checked path to
// the platform's default application.
func (b *WailsBridge) OpenExternal(target string) error {
	ctx, err := b.requestContext()
	if err != nil {
		return err
	}
	if err := b.app.OpenExternal(ctx, target); err != nil {
		return fmt.Errorf("open external: %w", err)
	}
	return nil
}

// RunCommand executes one allowlisted command, streaming output chunks to
// the frontend as events.
func (b *WailsBridge) RunCommand(request shell.RunRequest) (shell.Result, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return shell.Result{}, err
	}

	command := strings.TrimSpace(request.Command)
	result, err := b.app.RunCommand(
		ctx,
		request,
		func(chunk string) {
			if chunk == "" {
				return
			}
			b.emitEvent(ctx, commandStdoutChunkEventName, CommandChunkEvent{
				Command: command,
				Chunk:   chunk,
			})
		},
		func(chunk string) {
			if chunk == "" {
				return
			}
			b.emitEvent(ctx, commandStderrChunkEventName, CommandChunkEvent{
				Command: command,
				Chunk:   chunk,
			})
		},
	)
	if err != nil {
		return shell.Result{}, fmt.Errorf("run command: %w", err)
	}
	return result, nil
}

// AllowedCommands returns the sorted shell allowlist.
func (b *WailsBridge) AllowedCommands() ([]string, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return nil, err
	}
	return b.app.AllowedCommands(ctx), nil
}

// OpenDocumentFromSystem announces one document handed over by the
// operating system, for example a macOS open event or a file drop. A
// document arriving before the frontend has loaded is held and announced
// once it is ready.
func (b *WailsBridge) OpenDocumentFromSystem(path string) error {
	ctx, err := b.requestContext()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if !b.domReady {
		b.pendingSystemOpens = append(b.pendingSystemOpens, path)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	if err := b.announceSystemDocument(ctx, path); err != nil {
		return fmt.Errorf("open document from system: %w", err)
	}
	return nil
}

func (b *WailsBridge) announceSystemDocument(ctx context.Context, path string) error {
	return b.app.AnnounceDocument(ctx, path, func(announced string) {
		b.emit(documentOpenEventName, DocumentOpenEvent{Path: announced})
	})
}

func (b *WailsBridge) requestContext() (context.Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.started {
		return nil, fmt.Errorf("wails bridge is not started")
	}
	if b.startupErr != nil {
		return nil, fmt.Errorf("wails bridge startup failed: %w", b.startupErr)
	}
	return b.ctx, nil
}

func (b *WailsBridge) emit(eventName string, payload interface{}) {
	b.mu.RLock()
	ctx := b.ctx
	emitEvent := b.emitEvent
	b.mu.RUnlock()
	emitEvent(ctx, eventName, payload)
}

func defaultOpenDirectoryDialog(ctx context.Context) (string, error) {
	if preferredPath, handled, err := preferredOpenDirectoryDialog(ctx); handled || err != nil {
		return strings.TrimSpace(preferredPath), err
	}

	startedAt := time.Now()
	path, err := runtime.OpenDirectoryDialog(ctx, runtime.OpenDialogOptions{
		Title:            "Open Folder",
		DefaultDirectory: "~",
	})
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path != "" {
		return path, nil
	}

	fallbackPath, usedFallback, err := fallbackOpenDirectoryDialog(time.Since(startedAt))
	if err != nil {
		return "", err
	}
	if usedFallback {
		return strings.TrimSpace(fallbackPath), nil
	}
	return "", nil
}

func defaultOpenFileDialog(ctx context.Context) (string, error) {
	path, err := openMarkdownFileDialog(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func defaultSaveFileDialog(ctx context.Context) (string, error) {
	path, err := runtime.SaveFileDialog(ctx, runtime.SaveDialogOptions{
		Title:           "Save Markdown File",
		DefaultFilename: "Untitled.md",
		Filters: []runtime.FileFilter{
			{DisplayName: "Markdown Files", Pattern: document.DialogPattern()},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func defaultShowMessageDialog(ctx context.Context, kind string, title string, message string) (string, error) {
	dialogType := runtime.InfoDialog
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "warning":
		dialogType = runtime.WarningDialog
	case "error":
		dialogType = runtime.ErrorDialog
	case "question":
		dialogType = runtime.QuestionDialog
	}
	return runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
		Type:    dialogType,
		Title:   title,
		Message: message,
	})
}

func defaultEmitEvent(ctx context.Context, eventName string, payload interface{}) {
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, eventName, payload)
}
