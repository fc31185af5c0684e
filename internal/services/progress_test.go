package services

import (
	"testing"
	"time"

	"github.com/Lllllllleong/documenttextflow/internal/models"
)

func newTestTracker(retention time.Duration) (*ProgressTracker, *time.Time) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewProgressTracker(retention)
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

func TestProgressTracker_Lifecycle(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)

	tr.Start("a")
	if p, _ := tr.Get("a"); p.Percent != ProgressStarted || p.State != models.StateProcessing {
		t.Fatalf("after Start = %+v", p)
	}

	tr.Advance("a", ProgressPDFRead)
	tr.Advance("a", ProgressImageRead)
	if p, _ := tr.Get("a"); p.Percent != ProgressPDFRead {
		t.Errorf("percent = %d, progress must not go backwards", p.Percent)
	}

	tr.Advance("a", 250)
	if p, _ := tr.Get("a"); p.Percent != ProgressCompleted {
		t.Errorf("percent = %d, want capped at 100", p.Percent)
	}

	tr.Complete("a")
	tr.Advance("a", 50)
	p, ok := tr.Get("a")
	if !ok || p.State != models.StateCompleted || p.Percent != ProgressCompleted {
		t.Errorf("after Complete = %+v", p)
	}
}

func TestProgressTracker_FailResetsPercent(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	tr.Start("b")
	tr.Advance("b", ProgressImageRead)
	tr.Fail("b", "Error processing file. Please try again.")

	p, _ := tr.Get("b")
	if p.State != models.StateFailed || p.Percent != 0 || p.Error == "" {
		t.Errorf("after Fail = %+v", p)
	}
}

func TestProgressTracker_RequestsAreIndependent(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	tr.Start("first")
	tr.Start("second")
	tr.Fail("first", "boom")
	tr.Advance("second", ProgressPDFRead)

	if p, _ := tr.Get("second"); p.State != models.StateProcessing || p.Percent != ProgressPDFRead {
		t.Errorf("second = %+v, must not be affected by first", p)
	}
}

func TestProgressTracker_UnknownRequest(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	tr.Advance("ghost", 50)
	if _, ok := tr.Get("ghost"); ok {
		t.Error("Advance must not create entries")
	}
}

func TestProgressTracker_EvictsFinishedEntries(t *testing.T) {
	tr, clock := newTestTracker(time.Minute)
	tr.Start("done")
	tr.Complete("done")
	tr.Start("running")

	*clock = clock.Add(2 * time.Minute)
	tr.Start("new")

	if _, ok := tr.Get("done"); ok {
		t.Error("finished entry outlived its retention")
	}
	if _, ok := tr.Get("running"); !ok {
		t.Error("in-flight entries must never be evicted")
	}
}

func TestNewProgressTracker_DefaultRetention(t *testing.T) {
	if tr := NewProgressTracker(0); tr.retention != DefaultProgressTTL {
		t.Errorf("retention = %v, want %v", tr.retention, DefaultProgressTTL)
	}
}
