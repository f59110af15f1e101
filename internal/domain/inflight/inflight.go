// Package inflight tracks content fingerprints whose analysis is currently
// running, so duplicate submissions of the same bytes collapse onto one
// computation instead of racing each other into the pipeline.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultCapacity = 10_000

// Tracker records fingerprints under analysis.
type Tracker interface {
	// Begin atomically checks whether fingerprint is already in flight and
	// records it if not. Returns true when the fingerprint was already
	// tracked, false when it was newly recorded.
	Begin(ctx context.Context, fingerprint string) bool

	// End releases a fingerprint so the same content can be analyzed
	// again. Call it when the analysis finishes or fails to enqueue.
	End(ctx context.Context, fingerprint string)

	Size() int64
}

// Option applies a configuration option to the tracker.
type Option func(*tracker)

// WithCapacity bounds the number of tracked fingerprints. When the bound is
// reached the oldest entry is evicted, which protects the tracker from
// leaking when a worker dies without calling End. Zero or negative means
// unbounded.
func WithCapacity(n int) Option {
	return func(t *tracker) {
		t.capacity = n
	}
}

type entry struct {
	fingerprint string
	prev, next  *entry
}

// tracker is an in-memory Tracker: a map for membership plus an intrusive
// list in insertion order for bounded eviction.
type tracker struct {
	mu       sync.Mutex
	entries  map[string]*entry
	oldest   *entry
	newest   *entry
	capacity int
	size     atomic.Int64
}

// New constructs an in-memory tracker.
func New(opts ...Option) Tracker {
	t := &tracker{
		entries:  make(map[string]*entry),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracker) Begin(_ context.Context, fingerprint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[fingerprint]; ok {
		return true
	}
	if t.capacity > 0 && len(t.entries) >= t.capacity {
		t.evictOldest()
	}

	e := &entry{fingerprint: fingerprint, prev: t.newest}
	if t.newest != nil {
		t.newest.next = e
	} else {
		t.oldest = e
	}
	t.newest = e
	t.entries[fingerprint] = e
	t.size.Add(1)
	return false
}

func (t *tracker) End(_ context.Context, fingerprint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[fingerprint]
	if !ok {
		return
	}
	t.unlink(e)
	delete(t.entries, fingerprint)
	t.size.Add(-1)
}

func (t *tracker) Size() int64 {
	return t.size.Load()
}

// evictOldest drops the earliest recorded entry. Callers hold t.mu.
func (t *tracker) evictOldest() {
	e := t.oldest
	if e == nil {
		return
	}
	t.unlink(e)
	delete(t.entries, e.fingerprint)
	t.size.Add(-1)
}

// unlink removes e from the insertion-order list. Callers hold t.mu.
func (t *tracker) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.oldest = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.newest = e.prev
	}
	e.prev, e.next = nil, nil
}
