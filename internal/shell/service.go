// Package shell executes allowlisted external commands and hands URLs or
// files to the operating system's default applications.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/browser"
)

// Options configures a shell Service.
type Options struct {
	Logger          *slog.Logger
	AllowedCommands []string
	Timeout         time.Duration
	MaxOutputBytes  int
	KillGracePeriod time.Duration
}

// Service is the command execution capability. No command may run unless its
// name appears on the allowlist, so the zero allowlist denies everything.
type Service struct {
	logger          *slog.Logger
	allowed         map[string]struct{}
	timeout         time.Duration
	maxOutputBytes  int
	killGracePeriod time.Duration

	openBrowserURL func(rawURL string) error
	openDefaultApp func(ctx context.Context, path string) error
}

// NewService builds a shell Service from options, applying defaults for
// anything unset.
func NewService(options Options) *Service {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutputBytes := options.MaxOutputBytes
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	killGracePeriod := options.KillGracePeriod
	if killGracePeriod <= 0 {
		killGracePeriod = defaultKillGracePeriod
	}

	allowed := make(map[string]struct{}, len(options.AllowedCommands))
	for _, command := range options.AllowedCommands {
		command = strings.TrimSpace(command)
		if command == "" {
			continue
		}
		allowed[command] = struct{}{}
	}

	return &Service{
		logger:          logger,
		allowed:         allowed,
		timeout:         timeout,
		maxOutputBytes:  maxOutputBytes,
		killGracePeriod: killGracePeriod,
		openBrowserURL:  browser.OpenURL,
		openDefaultApp:  openWithDefaultApp,
	}
}

// CommandAllowed reports whether a command may be executed. Both the exact
// value and its base name are checked, so allowlisting "git" also covers
// "/usr/bin/git".
func (s *Service) CommandAllowed(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" {
		return false
	}
	if _, ok := s.allowed[command]; ok {
		return true
	}
	_, ok := s.allowed[filepath.Base(command)]
	return ok
}

// AllowedCommands returns the sorted allowlist.
func (s *Service) AllowedCommands() []string {
	commands := make([]string, 0, len(s.allowed))
	for command := range s.allowed {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}

// OpenURL hands an http or https URL to the default browser.
func (s *Service) OpenURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("open url context: %w", err)
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if err := s.openBrowserURL(rawURL); err != nil {
		return fmt.Errorf("open url in browser: %w", err)
	}
	s.logger.Info("opened url in default browser", "url", rawURL)
	return nil
}

// OpenPath hands an existing file or directory to the platform's default
// application for it. The caller resolves and authorizes the path first.
func (s *Service) OpenPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("open path context: %w", err)
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("inspect path: %w", err)
	}

	if err := s.openDefaultApp(ctx, path); err != nil {
		return fmt.Errorf("open path with default application: %w", err)
	}
	s.logger.Info("opened path with default application", "path", path)
	return nil
}
