package metrics

import (
	"sync"
	"time"
)

// CameraLatency holds upstream fetch statistics for one camera.
type CameraLatency struct {
	// EWMA of fetch round trips in milliseconds.
	EWMAms float64

	OK    uint64
	Error uint64

	LastRTT time.Duration
	LastAt  time.Time
}

// LatencyTracker records per-camera fetch outcomes.
type LatencyTracker struct {
	mu      sync.RWMutex
	alpha   float64
	cameras map[string]*CameraLatency
	now     func() time.Time
}

// NewLatencyTracker creates a tracker with EWMA smoothing factor alpha.
// Typical alpha: 0.1..0.3 (higher reacts faster).
func NewLatencyTracker(alpha float64) *LatencyTracker {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.2
	}
	return &LatencyTracker{
		alpha:   alpha,
		cameras: map[string]*CameraLatency{},
		now:     time.Now,
	}
}

func (t *LatencyTracker) ObserveOK(cameraID string, rtt time.Duration) {
	t.observe(cameraID, rtt, true)
}

func (t *LatencyTracker) ObserveError(cameraID string, rtt time.Duration) {
	t.observe(cameraID, rtt, false)
}

func (t *LatencyTracker) observe(cameraID string, rtt time.Duration, ok bool) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.cameras[cameraID]
	if c == nil {
		c = &CameraLatency{}
		t.cameras[cameraID] = c
	}

	ms := float64(rtt.Milliseconds())
	if ms < 0 {
		ms = 0
	}

	if c.OK+c.Error == 0 {
		c.EWMAms = ms
	} else {
		c.EWMAms = (t.alpha * ms) + ((1.0 - t.alpha) * c.EWMAms)
	}

	c.LastRTT = rtt
	c.LastAt = now
	if ok {
		c.OK++
	} else {
		c.Error++
	}
}

func (t *LatencyTracker) Get(cameraID string) (CameraLatency, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := t.cameras[cameraID]
	if c == nil {
		return CameraLatency{}, false
	}
	return *c, true
}

func (t *LatencyTracker) Snapshot() map[string]CameraLatency {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]CameraLatency, len(t.cameras))
	for k, v := range t.cameras {
		out[k] = *v
	}
	return out
}
