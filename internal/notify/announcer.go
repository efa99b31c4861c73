// Package notify schedules fire-and-forget document announcements.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DocumentHandler receives one announced document path.
type DocumentHandler func(path string)

// Announcer delivers document paths after a fixed delay. Delivery is
// fire-and-forget: a canceled or dropped announcement is silent and
// nothing is retried.
type Announcer struct {
	delay time.Duration

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewAnnouncer creates an announcer with the provided delay. Delays
// below zero behave like zero.
func NewAnnouncer(delay time.Duration) *Announcer {
	if delay < 0 {
		delay = 0
	}
	return &Announcer{
		delay: delay,
		done:  make(chan struct{}),
	}
}

// Delay returns the configured announcement delay.
func (a *Announcer) Delay() time.Duration {
	return a.delay
}

// Schedule delivers path to deliver after the configured delay on a
// background goroutine. Context cancellation or Close drops the pending
// announcement.
func (a *Announcer) Schedule(ctx context.Context, path string, deliver DocumentHandler) {
	if deliver == nil || strings.TrimSpace(path) == "" {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	go func() {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-a.done:
		case <-timer.C:
			deliver(path)
		}
	}()
}

// Close drops all pending announcements. Safe to call more than once.
func (a *Announcer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
}
