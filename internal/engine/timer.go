package engine

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timerEntry is one (id, fire-at) pair held by the delay timer.
type timerEntry struct {
	id     uuid.UUID
	fireAt time.Time
	index  int
}

// entryHeap is a min-heap on fireAt, giving non-decreasing release order
// (spec §4.6 "Timer ordering").
type entryHeap []*timerEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// DelayTimer is a monotonic-clock priority queue keyed on fire-at time.
// Insert is O(log n); DrainReady pops every ripe entry without blocking,
// and NextWait reports how long until the earliest entry ripens. Removal by id is
// intentionally unsupported — release_ready tolerates stale entries by
// looking them up in the bank and silently skipping misses (spec §4.6).
type DelayTimer struct {
	mu      sync.Mutex
	heap    entryHeap
	wake    chan struct{}
	stopped bool
}

// NewDelayTimer constructs an empty timer.
func NewDelayTimer() *DelayTimer {
	t := &DelayTimer{
		heap: entryHeap{},
		wake: make(chan struct{}, 1),
	}
	heap.Init(&t.heap)
	return t
}

// Insert arms a new entry at now+delay.
func (t *DelayTimer) Insert(id uuid.UUID, delay time.Duration) {
	t.mu.Lock()
	heap.Push(&t.heap, &timerEntry{id: id, fireAt: time.Now().Add(delay)})
	t.mu.Unlock()
	t.poke()
}

// Len reports how many entries remain armed.
func (t *DelayTimer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heap.Len()
}

func (t *DelayTimer) poke() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// DrainReady pops every entry whose fire-at has already elapsed and appends
// their ids to out. It never blocks. Returns the number drained.
func (t *DelayTimer) DrainReady(out *[]uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	n := 0
	for t.heap.Len() > 0 {
		next := t.heap[0]
		if next.fireAt.After(now) {
			break
		}
		heap.Pop(&t.heap)
		*out = append(*out, next.id)
		n++
	}
	return n
}

// NextWait returns the duration until the earliest armed entry fires, or
// ok=false if the timer is empty. An entry that is already ripe reports a
// zero duration.
func (t *DelayTimer) NextWait() (d time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.heap.Len() == 0 {
		return 0, false
	}
	until := time.Until(t.heap[0].fireAt)
	if until < 0 {
		return 0, true
	}
	return until, true
}
