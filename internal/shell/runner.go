package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout limits one command execution.
const DefaultTimeout = 15 * time.Second

const (
	// DefaultMaxOutputBytes caps stdout and stderr captured for one run.
	DefaultMaxOutputBytes = 128 * 1024
	// defaultKillGracePeriod is how long graceful stop gets before forced kill.
	defaultKillGracePeriod = 400 * time.Millisecond
)

// RunRequest captures frontend-provided input for one command execution.
type RunRequest struct {
	Command          string            `json:"command"`
	Args             []string          `json:"args"`
	WorkingDirectory string            `json:"workingDirectory"`
	Environment      map[string]string `json:"environment"`
	TimeoutMS        int64             `json:"timeoutMs"`
}

// OutputChunkHandler receives incremental output chunks while a command runs.
type OutputChunkHandler func(chunk string)

// Result contains one command execution outcome.
type Result struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exitCode"`
	DurationMS      int64  `json:"durationMs"`
	TimedOut        bool   `json:"timedOut"`
	Canceled        bool   `json:"canceled"`
	StdoutTruncated bool   `json:"stdoutTruncated"`
	StderrTruncated bool   `json:"stderrTruncated"`
}

// Run executes one allowlisted command with merged environment, bounded
// duration and capped, optionally streamed, output.
func (s *Service) Run(
	ctx context.Context,
	request RunRequest,
	onStdoutChunk OutputChunkHandler,
	onStderrChunk OutputChunkHandler,
) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run command context: %w", err)
	}

	command := strings.TrimSpace(request.Command)
	if command == "" {
		return Result{}, fmt.Errorf("command is required")
	}
	if !s.CommandAllowed(command) {
		return Result{}, fmt.Errorf("command %q is not allowlisted", command)
	}

	workingDirectory := strings.TrimSpace(request.WorkingDirectory)
	if workingDirectory != "" {
		absoluteWorkingDirectory, err := filepath.Abs(workingDirectory)
		if err != nil {
			return Result{}, fmt.Errorf("resolve working directory: %w", err)
		}
		info, err := os.Stat(absoluteWorkingDirectory)
		if err != nil {
			return Result{}, fmt.Errorf("inspect working directory: %w", err)
		}
		if !info.IsDir() {
			return Result{}, fmt.Errorf("working directory must be a directory")
		}
		workingDirectory = absoluteWorkingDirectory
	}

	timeout := s.timeout
	if request.TimeoutMS > 0 {
		timeout = time.Duration(request.TimeoutMS) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.Command(command, request.Args...)
	execCmd.Dir = workingDirectory
	execCmd.Env = mergeEnvironment(os.Environ(), request.Environment)
	configureCommandForLifecycle(execCmd)

	stdoutCapture := newLimitedCaptureWriter(s.maxOutputBytes, onStdoutChunk)
	stderrCapture := newLimitedCaptureWriter(s.maxOutputBytes, onStderrChunk)
	execCmd.Stdout = stdoutCapture
	execCmd.Stderr = stderrCapture

	startedAt := time.Now()
	if err := execCmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start command: %w", err)
	}
	waitCh := make(chan error, 1)
	go func() {
		waitCh <- execCmd.Wait()
	}()
	err := waitForCommandExit(runCtx, execCmd, waitCh, s.killGracePeriod)
	duration := time.Since(startedAt)

	result := Result{
		Stdout:          stdoutCapture.String(),
		Stderr:          stderrCapture.String(),
		ExitCode:        0,
		DurationMS:      duration.Milliseconds(),
		StdoutTruncated: stdoutCapture.Truncated(),
		StderrTruncated: stderrCapture.Truncated(),
	}

	if err == nil {
		return result, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		if strings.TrimSpace(result.Stderr) == "" {
			result.Stderr = "execution timed out"
		}
		return result, nil
	}
	if errors.Is(runCtx.Err(), context.Canceled) {
		result.Canceled = true
		result.ExitCode = -1
		if strings.TrimSpace(result.Stderr) == "" {
			result.Stderr = "execution canceled"
		}
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return Result{}, fmt.Errorf("run command: %w", err)
}

func mergeEnvironment(base []string, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		parts := strings.SplitN(entry, "=", 2)
		key := parts[0]
		value := ""
		if len(parts) == 2 {
			value = parts[1]
		}
		merged[key] = value
	}
	for key, value := range overrides {
		if strings.TrimSpace(key) == "" {
			continue
		}
		merged[key] = value
	}

	result := make([]string, 0, len(merged))
	for key, value := range merged {
		result = append(result, key+"="+value)
	}
	return result
}

func waitForCommandExit(ctx context.Context, command *exec.Cmd, waitCh <-chan error, killGracePeriod time.Duration) error {
	select {
	case waitErr := <-waitCh:
		return waitErr
	case <-ctx.Done():
		_ = signalInterrupt(command)

		timer := time.NewTimer(killGracePeriod)
		defer timer.Stop()

		select {
		case waitErr := <-waitCh:
			return waitErr
		case <-timer.C:
			_ = forceKill(command)
			return <-waitCh
		}
	}
}

type limitedCaptureWriter struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	maxBytes  int
	size      int
	truncated bool
	onChunk   func(string)
}

func newLimitedCaptureWriter(maxBytes int, onChunk func(string)) *limitedCaptureWriter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	return &limitedCaptureWriter{
		maxBytes: maxBytes,
		onChunk:  onChunk,
	}
}

func (w *limitedCaptureWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()

	accepted := p
	remaining := w.maxBytes - w.size
	if remaining <= 0 {
		w.truncated = true
		w.mu.Unlock()
		return len(p), nil
	}
	if len(accepted) > remaining {
		accepted = accepted[:remaining]
		w.truncated = true
	}

	var chunk string
	if len(accepted) > 0 {
		if _, err := w.buffer.Write(accepted); err != nil {
			w.mu.Unlock()
			return 0, err
		}
		w.size += len(accepted)
		if w.onChunk != nil {
			chunk = string(accepted)
		}
	}
	if len(accepted) < len(p) {
		w.truncated = true
	}
	w.mu.Unlock()

	if chunk != "" {
		w.onChunk(chunk)
	}
	return len(p), nil
}

func (w *limitedCaptureWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.String()
}

func (w *limitedCaptureWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
