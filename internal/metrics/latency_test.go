package metrics

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestLatencyTracker_FirstObservationSeedsEWMA(t *testing.T) {
	tr := NewLatencyTracker(0.5)
	tr.ObserveOK("cam1", 100*time.Millisecond)

	got, ok := tr.Get("cam1")
	if !ok {
		t.Fatal("Expected stats for cam1")
	}
	if got.EWMAms != 100 {
		t.Errorf("EWMA: got %.1f, want 100", got.EWMAms)
	}
	if got.OK != 1 || got.Error != 0 {
		t.Errorf("Counters: got ok=%d error=%d", got.OK, got.Error)
	}
}

func TestLatencyTracker_Smoothing(t *testing.T) {
	tr := NewLatencyTracker(0.5)
	tr.ObserveOK("cam1", 100*time.Millisecond)
	tr.ObserveError("cam1", 300*time.Millisecond)

	got, _ := tr.Get("cam1")
	if math.Abs(got.EWMAms-200) > 0.001 {
		t.Errorf("EWMA: got %.3f, want 200", got.EWMAms)
	}
	if got.OK != 1 || got.Error != 1 {
		t.Errorf("Counters: got ok=%d error=%d", got.OK, got.Error)
	}
	if got.LastRTT != 300*time.Millisecond {
		t.Errorf("LastRTT: got %v", got.LastRTT)
	}
}

func TestLatencyTracker_InvalidAlphaFallsBack(t *testing.T) {
	for _, alpha := range []float64{0, -1, 1, 3} {
		if tr := NewLatencyTracker(alpha); tr.alpha != 0.2 {
			t.Errorf("alpha %.1f: got %.2f, want 0.2", alpha, tr.alpha)
		}
	}
}

func TestLatencyTracker_UnknownCamera(t *testing.T) {
	tr := NewLatencyTracker(0.2)
	if _, ok := tr.Get("missing"); ok {
		t.Error("Expected no stats for unknown camera")
	}
}

func TestLatencyTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewLatencyTracker(0.2)
	tr.ObserveOK("cam1", 10*time.Millisecond)

	snap := tr.Snapshot()
	tr.ObserveOK("cam1", 10*time.Millisecond)

	if snap["cam1"].OK != 1 {
		t.Errorf("Snapshot changed after later observation: %d", snap["cam1"].OK)
	}
}

func TestLatencyTracker_Concurrent(t *testing.T) {
	tr := NewLatencyTracker(0.2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.ObserveOK("cam1", time.Millisecond)
		}()
	}
	wg.Wait()

	if got, _ := tr.Get("cam1"); got.OK != 50 {
		t.Errorf("Expected 50 observations, got %d", got.OK)
	}
}
