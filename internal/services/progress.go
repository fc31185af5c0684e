package services

import (
	"sync"
	"time"

	"github.com/Lllllllleong/documenttextflow/internal/models"
)

// Coarse progress checkpoints reported to the UI. They carry no correctness contract.
const (
	ProgressStarted    = 10
	ProgressImageRead  = 30
	ProgressPDFRead    = 40
	ProgressCompleted  = 100
	DefaultProgressTTL = 10 * time.Minute
)

// ProgressTracker keeps the progress of every in-flight and recently finished
// request, keyed by request ID, so overlapping uploads never share state.
type ProgressTracker struct {
	mu        sync.Mutex
	entries   map[string]models.Progress
	retention time.Duration
	now       func() time.Time
}

// NewProgressTracker creates a tracker that forgets finished requests after retention.
func NewProgressTracker(retention time.Duration) *ProgressTracker {
	if retention <= 0 {
		retention = DefaultProgressTTL
	}
	return &ProgressTracker{
		entries:   make(map[string]models.Progress),
		retention: retention,
		now:       time.Now,
	}
}

// Start registers a request at the initial checkpoint.
func (t *ProgressTracker) Start(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked()
	t.entries[requestID] = models.Progress{
		RequestID: requestID,
		Percent:   ProgressStarted,
		State:     models.StateProcessing,
		UpdatedAt: t.now(),
	}
}

// Advance moves a processing request forward. Progress never goes backwards
// and finished requests are left untouched.
func (t *ProgressTracker) Advance(requestID string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[requestID]
	if !ok || p.State != models.StateProcessing || percent <= p.Percent {
		return
	}
	p.Percent = min(percent, ProgressCompleted)
	p.UpdatedAt = t.now()
	t.entries[requestID] = p
}

// Complete marks a request as done at 100%.
func (t *ProgressTracker) Complete(requestID string) {
	t.finish(requestID, models.StateCompleted, ProgressCompleted, "")
}

// Fail marks a request as failed and resets its progress to zero.
func (t *ProgressTracker) Fail(requestID string, message string) {
	t.finish(requestID, models.StateFailed, 0, message)
}

func (t *ProgressTracker) finish(requestID, state string, percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[requestID] = models.Progress{
		RequestID: requestID,
		Percent:   percent,
		State:     state,
		Error:     message,
		UpdatedAt: t.now(),
	}
	t.evictLocked()
}

// Get returns the progress of requestID.
func (t *ProgressTracker) Get(requestID string) (models.Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[requestID]
	return p, ok
}

// evictLocked drops finished entries older than the retention window.
func (t *ProgressTracker) evictLocked() {
	cutoff := t.now().Add(-t.retention)
	for id, p := range t.entries {
		if p.State != models.StateProcessing && p.UpdatedAt.Before(cutoff) {
			delete(t.entries, id)
		}
	}
}
