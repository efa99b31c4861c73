// Package testutil carries helpers shared by the package test suites.
package testutil

import (
	"context"
	"testing"
	"time"
)

type deadlineReporter interface {
	Deadline() (deadline time.Time, ok bool)
}

// TestRunContext bounds announcement and watcher waits by the test binary's
// own deadline, keeping one second back for cleanup. Without a deadline it
// falls back to ten seconds.
func TestRunContext(t testing.TB) (context.Context, context.CancelFunc) {
	t.Helper()
	if reporter, ok := t.(deadlineReporter); ok {
		if deadline, exists := reporter.Deadline(); exists {
			return context.WithDeadline(context.Background(), deadline.Add(-time.Second))
		}
	}
	return context.WithTimeout(context.Background(), 10*time.Second)
}
