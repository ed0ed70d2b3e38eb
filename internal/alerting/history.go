package alerting

import (
	"sort"
	"time"
)

// DefaultHistorySize is the number of samples retained per metric.
const DefaultHistorySize = 1000

// Sample is a single metric observation.
type Sample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ring is a fixed-capacity FIFO of samples. When full, the oldest sample is
// overwritten.
type ring struct {
	buf   []Sample
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// at returns the i-th oldest sample.
func (r *ring) at(i int) Sample {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring) snapshot() []Sample {
	out := make([]Sample, r.n)
	for i := range r.n {
		out[i] = r.at(i)
	}
	return out
}

// dropBefore removes samples older than cutoff from the front.
// Samples are in timestamp order, so a binary search finds the boundary.
func (r *ring) dropBefore(cutoff time.Time) int {
	drop := sort.Search(r.n, func(i int) bool {
		return !r.at(i).Timestamp.Before(cutoff)
	})
	if drop == 0 {
		return 0
	}
	r.start = (r.start + drop) % len(r.buf)
	r.n -= drop
	return drop
}

// HistoryStore keeps a bounded sample history per metric name.
// It is not safe for concurrent use; Engine serializes access.
type HistoryStore struct {
	capacity int
	series   map[string]*ring
}

// NewHistoryStore creates a store retaining capacity samples per metric.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryStore{
		capacity: capacity,
		series:   make(map[string]*ring),
	}
}

// Append adds a sample, evicting the oldest one if the metric is at capacity.
func (h *HistoryStore) Append(metric string, s Sample) {
	r, ok := h.series[metric]
	if !ok {
		r = newRing(h.capacity)
		h.series[metric] = r
	}
	r.push(s)
}

// Samples returns the metric's samples, oldest first.
func (h *HistoryStore) Samples(metric string) []Sample {
	r, ok := h.series[metric]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// Recent returns up to n of the most recent samples with a timestamp at or
// after since, oldest first.
func (h *HistoryStore) Recent(metric string, since time.Time, n int) []Sample {
	r, ok := h.series[metric]
	if !ok || n <= 0 {
		return nil
	}
	out := make([]Sample, 0, min(n, r.n))
	for i := r.n - 1; i >= 0 && len(out) < n; i-- {
		s := r.at(i)
		if s.Timestamp.Before(since) {
			break
		}
		out = append(out, s)
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of samples stored for metric.
func (h *HistoryStore) Len(metric string) int {
	if r, ok := h.series[metric]; ok {
		return r.n
	}
	return 0
}

// Series returns the number of metrics with history.
func (h *HistoryStore) Series() int {
	return len(h.series)
}

// TrimBefore drops samples older than cutoff and removes empty series.
// Returns the number of samples removed.
func (h *HistoryStore) TrimBefore(cutoff time.Time) int {
	removed := 0
	for metric, r := range h.series {
		removed += r.dropBefore(cutoff)
		if r.n == 0 {
			delete(h.series, metric)
		}
	}
	return removed
}
