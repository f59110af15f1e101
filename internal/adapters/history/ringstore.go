package history

import (
	"context"
	"sync"
	"time"
)

const defaultCapacity = 1_000

// Option applies a configuration option to the RingStore.
type Option func(*RingStore)

// WithCapacity sets how many completed scans are retained.
func WithCapacity(n int) Option {
	return func(s *RingStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// RingStore is an in-memory Store over a fixed-size ring buffer. Eviction
// is strictly oldest-first; lookups by job ID go through a side index that
// is pruned together with the ring.
type RingStore struct {
	mu       sync.RWMutex
	records  []Record
	start    int // index of the oldest record
	count    int
	capacity int
	byJob    map[string]int // job ID -> absolute sequence number
	seq      int            // sequence number of the next Add
}

// NewRingStore constructs a RingStore.
func NewRingStore(opts ...Option) *RingStore {
	s := &RingStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.records = make([]Record, s.capacity)
	s.byJob = make(map[string]int, s.capacity)
	return s
}

// Add records a completed scan.
func (s *RingStore) Add(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	pos := (s.start + s.count) % s.capacity
	if s.count == s.capacity {
		// Evict the oldest record and its index entry.
		evicted := s.records[s.start]
		if seq, ok := s.byJob[evicted.JobID]; ok && seq == s.seq-s.capacity {
			delete(s.byJob, evicted.JobID)
		}
		pos = s.start
		s.start = (s.start + 1) % s.capacity
	} else {
		s.count++
	}

	s.records[pos] = rec
	if rec.JobID != "" {
		s.byJob[rec.JobID] = s.seq
	}
	s.seq++
	return nil
}

// Recent returns up to limit records, most recent first.
func (s *RingStore) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := limit
	if n > s.count {
		n = s.count
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		pos := (s.start + s.count - 1 - i) % s.capacity
		out[i] = s.records[pos]
	}
	return out, nil
}

// ByJobID returns the scan with the given job ID.
func (s *RingStore) ByJobID(_ context.Context, jobID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.byJob[jobID]
	if !ok || seq < s.seq-s.count {
		return Record{}, ErrNotFound
	}
	offset := seq - (s.seq - s.count)
	return s.records[(s.start+offset)%s.capacity], nil
}

// Stats aggregates the currently retained records.
func (s *RingStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Verdicts: make(map[string]int64)}
	var totalDur time.Duration
	for i := 0; i < s.count; i++ {
		rec := s.records[(s.start+i)%s.capacity]
		stats.TotalScans++
		if rec.Error != "" {
			stats.Failures++
			continue
		}
		stats.Verdicts[string(rec.Verdict)]++
		if rec.Cached {
			stats.CacheHits++
		}
		totalDur += rec.Duration
	}
	if completed := stats.TotalScans - stats.Failures; completed > 0 {
		stats.MeanDurationMS = float64(totalDur.Milliseconds()) / float64(completed)
	}
	return stats
}

// Count returns the number of retained records.
func (s *RingStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
