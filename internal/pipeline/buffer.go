package pipeline

import (
	"sync"

	"airmetrics/pkg/types"
)

// DefaultBufferCapacity matches the default buffer.max_readings.
const DefaultBufferCapacity = 10000

// StagingBuffer is a bounded FIFO of readings awaiting persistence. When full,
// Append evicts the oldest entry.
type StagingBuffer struct {
	mu        sync.Mutex
	ring      []types.Reading
	head      int
	n         int
	highWater int
	hw        chan struct{}
}

// NewStagingBuffer returns a buffer holding at most capacity readings.
// highWater > 0 enables the early-flush signal.
func NewStagingBuffer(capacity, highWater int) *StagingBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &StagingBuffer{
		ring:      make([]types.Reading, capacity),
		highWater: highWater,
		hw:        make(chan struct{}, 1),
	}
}

// Append adds r and reports whether the oldest entry was evicted for it.
func (b *StagingBuffer) Append(r types.Reading) bool {
	b.mu.Lock()
	evicted := false
	c := len(b.ring)
	if b.n == c {
		b.ring[b.head] = r
		b.head = (b.head + 1) % c
		evicted = true
	} else {
		b.ring[(b.head+b.n)%c] = r
		b.n++
	}
	n := b.n
	b.mu.Unlock()

	if evicted {
		bufferEvicted.Inc()
	}
	bufferLength.Set(float64(n))
	if b.highWater > 0 && n >= b.highWater {
		select {
		case b.hw <- struct{}{}:
		default:
		}
	}
	return evicted
}

// DrainAndClear returns every buffered reading, oldest first, and empties the
// buffer in the same critical section.
func (b *StagingBuffer) DrainAndClear() []types.Reading {
	b.mu.Lock()
	if b.n == 0 {
		b.mu.Unlock()
		return nil
	}
	c := len(b.ring)
	out := make([]types.Reading, b.n)
	for i := 0; i < b.n; i++ {
		idx := (b.head + i) % c
		out[i] = b.ring[idx]
		b.ring[idx] = types.Reading{}
	}
	b.head, b.n = 0, 0
	b.mu.Unlock()
	bufferLength.Set(0)
	return out
}

// IsEmpty reports whether nothing is waiting to be flushed.
func (b *StagingBuffer) IsEmpty() bool { return b.Len() == 0 }

func (b *StagingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *StagingBuffer) Cap() int { return len(b.ring) }

// HighWater fires (coalesced) when the length reaches the high-water mark.
func (b *StagingBuffer) HighWater() <-chan struct{} { return b.hw }
