package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"airmetrics/internal/sensor"
	"airmetrics/internal/store"
	"airmetrics/pkg/types"
)

type step struct {
	sample *sensor.Sample
	err    error
	panics bool
}

// scriptDriver replays steps in order, then reports absent.
type scriptDriver struct {
	mu        sync.Mutex
	steps     []step
	i         int
	connected bool
}

func (d *scriptDriver) Read(ctx context.Context) (*sensor.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.i >= len(d.steps) {
		return nil, nil
	}
	st := d.steps[d.i]
	d.i++
	if st.panics {
		panic("boom")
	}
	return st.sample, st.err
}

func (d *scriptDriver) Connected() bool       { return d.connected }
func (d *scriptDriver) RecentlyHealthy() bool { return true }

// blockingDriver never returns until release is closed.
type blockingDriver struct{ release chan struct{} }

func (d *blockingDriver) Read(ctx context.Context) (*sensor.Sample, error) {
	<-d.release
	return nil, nil
}
func (d *blockingDriver) Connected() bool       { return true }
func (d *blockingDriver) RecentlyHealthy() bool { return false }

func temp(v float64, ts int64) step {
	return step{sample: &sensor.Sample{Temperature: types.Float(v), TS: ts}}
}

type recordingSink struct {
	mu   sync.Mutex
	rows []types.Reading
}

func (s *recordingSink) Append(r types.Reading) bool {
	s.mu.Lock()
	s.rows = append(s.rows, r)
	s.mu.Unlock()
	return false
}

func (s *recordingSink) all() []types.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Reading(nil), s.rows...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	panics bool
}

func (p *recordingPublisher) Publish(name string, payload any) {
	if p.panics {
		panic("publisher down")
	}
	p.mu.Lock()
	p.events = append(p.events, payload)
	p.mu.Unlock()
}

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type panicSink struct{}

func (panicSink) Append(types.Reading) bool { panic("buffer down") }

// countingStore wraps a memory store and can be told to fail inserts.
type countingStore struct {
	*store.Memory
	mu        sync.Mutex
	inserts   int
	insertErr error
}

func newCountingStore() *countingStore { return &countingStore{Memory: store.NewMemory()} }

func (s *countingStore) InsertMany(ctx context.Context, rs []types.Reading) error {
	s.mu.Lock()
	s.inserts++
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.InsertMany(ctx, rs)
}

func (s *countingStore) insertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

var errStoreDown = errors.New("store down")

func newTestSampler(t *testing.T, name string, d sensor.Driver, th Thresholds, buf BufferSink, pub EventPublisher) *Sampler {
	t.Helper()
	s, err := NewSampler(SamplerConfig{
		Name:        name,
		Driver:      d,
		Thresholds:  th,
		Interval:    time.Millisecond,
		ReadTimeout: time.Second,
		Buffer:      buf,
		Publisher:   pub,
		Now:         func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
