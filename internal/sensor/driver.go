package sensor

import (
	"context"
	"math"
	"sync"
	"time"
)

// DefaultHealthWindow bounds how old the last successful read may be for
// RecentlyHealthy to report true.
const DefaultHealthWindow = 60 * time.Second

// Sample is the raw output of one driver read.
type Sample struct {
	Temperature *float64
	Humidity    *float64
	// TS is the acquisition time in unix seconds; zero lets the caller stamp it.
	TS int64
}

// Driver is the capability set every sensor variant implements.
type Driver interface {
	// Read acquires one sample. A nil sample with a nil error means the
	// device produced nothing usable this time.
	Read(ctx context.Context) (*Sample, error)
	Connected() bool
	RecentlyHealthy() bool
}

// readTracker records successful reads for RecentlyHealthy.
type readTracker struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration
	now    func() time.Time
}

func newReadTracker(window time.Duration) *readTracker {
	if window <= 0 {
		window = DefaultHealthWindow
	}
	return &readTracker{window: window, now: time.Now}
}

func (t *readTracker) markSuccess() {
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
}

func (t *readTracker) recent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.last.IsZero() && t.now().Sub(t.last) <= t.window
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
