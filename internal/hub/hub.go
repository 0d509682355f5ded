package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultQueueSize is the per-subscriber channel capacity used when none is given.
const DefaultQueueSize = 100

// Event is one named payload flowing to subscribers.
type Event struct {
	Name string
	Data any
}

// Subscriber is one viewer's bounded inbox. It is identified by its own ID,
// not by the viewer.
type Subscriber struct {
	id      string
	ch      chan Event
	dropped atomic.Uint64
}

// ID returns the subscriber identity.
func (s *Subscriber) ID() string { return s.id }

// Events is the receive side of the subscriber inbox. The hub never closes it.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Dropped reports how many events were discarded because the inbox was full.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Hub fans events out to subscribers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscriber
	queueSize int
}

// New creates a hub whose subscribers get inboxes of queueSize events.
func New(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{subs: make(map[string]*Subscriber), queueSize: queueSize}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{id: uuid.NewString(), ch: make(chan Event, h.queueSize)}
	h.mu.Lock()
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()
	subscribersGauge.Set(float64(n))
	return s
}

// Unsubscribe removes s. Calling it more than once is harmless.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()
	subscribersGauge.Set(float64(n))
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers the event to every current subscriber without blocking.
// A subscriber whose inbox is full misses this event; nobody else is affected.
func (h *Hub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	ev := Event{Name: name, Data: payload}
	for _, s := range snapshot {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			droppedTotal.Inc()
		}
	}
}
