package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"airmetrics/pkg/types"
)

var errClosed = errors.New("store closed")

// Memory keeps readings in a slice. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	rows   []types.Reading
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) InsertMany(ctx context.Context, readings []types.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.rows = append(m.rows, readings...)
	return nil
}

func (m *Memory) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errClosed
	}
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.TS < cutoff {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *Memory) QuerySince(ctx context.Context, since int64) ([]types.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	out := make([]types.Reading, 0, len(m.rows))
	for _, r := range m.rows {
		if r.TS >= since {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed; the rows stay readable through All.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// All returns a copy of every stored row in insertion order.
func (m *Memory) All() []types.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Reading, len(m.rows))
	copy(out, m.rows)
	return out
}
