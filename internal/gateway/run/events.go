package run

import (
	"strings"
	"sync"
	"time"

	"distillery/internal/progress"
)

const completedRunRetention = 30 * time.Second

// RunEvent is one progress update pushed to watchers of a run.
type RunEvent struct {
	RunID    string            `json:"runId"`
	Status   Status            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Snapshot progress.Snapshot `json:"snapshot"`
}

// EventBroker manages per-run event channels.
type EventBroker struct {
	mu     sync.RWMutex
	events map[string]chan RunEvent
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{events: make(map[string]chan RunEvent)}
}

// Allocate creates and registers a new event channel for a run.
func (b *EventBroker) Allocate(runID string, size int) chan RunEvent {
	if size <= 0 {
		size = 1
	}
	ch := make(chan RunEvent, size)
	b.mu.Lock()
	b.events[strings.TrimSpace(runID)] = ch
	b.mu.Unlock()
	return ch
}

// Get returns the event channel for a run.
func (b *EventBroker) Get(runID string) (chan RunEvent, bool) {
	b.mu.RLock()
	ch, ok := b.events[strings.TrimSpace(runID)]
	b.mu.RUnlock()
	return ch, ok
}

// Publish pushes an event without blocking. When the channel is full the
// oldest event is dropped; watchers always see the freshest state.
func (b *EventBroker) Publish(runID string, evt RunEvent) {
	ch, ok := b.Get(runID)
	if !ok {
		return
	}
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}

// ScheduleCleanup removes a run's event channel after a retention period.
func (b *EventBroker) ScheduleCleanup(runID string) {
	time.AfterFunc(completedRunRetention, func() {
		b.mu.Lock()
		delete(b.events, strings.TrimSpace(runID))
		b.mu.Unlock()
	})
}
