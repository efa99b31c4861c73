package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// StartupEvent captures startup timing.
type StartupEvent struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// AnnouncementEvent captures scheduling and delivery timings for one
// document open announcement.
type AnnouncementEvent struct {
	Path        string
	ScheduledAt time.Time
	DeliveredAt time.Time
	Latency     time.Duration
}

type announcementState struct {
	scheduledAt time.Time
}

// Recorder tracks startup and announcement latency events in memory.
type Recorder struct {
	mu            sync.Mutex
	announcements map[string]announcementState
}

// NewRecorder creates a telemetry recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		announcements: make(map[string]announcementState),
	}
}

// MarkStartupComplete computes startup duration from a provided start time.
func (r *Recorder) MarkStartupComplete(startedAt time.Time) StartupEvent {
	completedAt := time.Now()
	if completedAt.Before(startedAt) {
		completedAt = startedAt
	}
	return StartupEvent{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
	}
}

// MarkAnnouncementScheduled stores the scheduling timestamp for a path.
func (r *Recorder) MarkAnnouncementScheduled(path string, scheduledAt time.Time) error {
	if path == "" {
		return fmt.Errorf("announcement path is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.announcements[path] = announcementState{
		scheduledAt: scheduledAt,
	}
	return nil
}

// MarkAnnouncementDelivered records delivery and returns an event.
// The boolean return reports whether this call emitted a new event.
func (r *Recorder) MarkAnnouncementDelivered(path string, deliveredAt time.Time) (AnnouncementEvent, bool, error) {
	if path == "" {
		return AnnouncementEvent{}, false, fmt.Errorf("announcement path is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.announcements[path]
	if !ok {
		return AnnouncementEvent{}, false, fmt.Errorf("announcement not found")
	}
	if deliveredAt.Before(state.scheduledAt) {
		deliveredAt = state.scheduledAt
	}

	delete(r.announcements, path)

	return AnnouncementEvent{
		Path:        path,
		ScheduledAt: state.scheduledAt,
		DeliveredAt: deliveredAt,
		Latency:     deliveredAt.Sub(state.scheduledAt),
	}, true, nil
}
