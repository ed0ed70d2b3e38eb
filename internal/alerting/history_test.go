package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStoreBounded(t *testing.T) {
	h := NewHistoryStore(0)
	base := time.Unix(1700000000, 0)

	for i := range 1500 {
		h.Append("cpu", Sample{Value: float64(i), Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	samples := h.Samples("cpu")
	require.Len(t, samples, DefaultHistorySize)
	assert.Equal(t, float64(500), samples[0].Value, "oldest 500 samples should be evicted")
	assert.Equal(t, float64(1499), samples[len(samples)-1].Value)
	assert.Equal(t, DefaultHistorySize, h.Len("cpu"))
}

func TestHistoryStoreRecent(t *testing.T) {
	h := NewHistoryStore(10)
	base := time.Unix(1700000000, 0)
	for i := range 5 {
		h.Append("cpu", Sample{Value: float64(i), Timestamp: base.Add(time.Duration(i) * 10 * time.Second)})
	}

	// window covers the last three samples (t=20,30,40)
	recent := h.Recent("cpu", base.Add(20*time.Second), 10)
	require.Len(t, recent, 3)
	assert.Equal(t, []float64{2, 3, 4}, values(recent))

	recent = h.Recent("cpu", base, 2)
	assert.Equal(t, []float64{3, 4}, values(recent))

	assert.Nil(t, h.Recent("mem", base, 2))
	assert.Nil(t, h.Recent("cpu", base, 0))
}

func TestHistoryStoreTrimBefore(t *testing.T) {
	h := NewHistoryStore(4)
	base := time.Unix(1700000000, 0)
	for i := range 6 {
		h.Append("cpu", Sample{Value: float64(i), Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	h.Append("mem", Sample{Value: 1, Timestamp: base})

	removed := h.TrimBefore(base.Add(4 * time.Minute))
	assert.Equal(t, 3, removed)
	assert.Equal(t, []float64{4, 5}, values(h.Samples("cpu")))
	assert.Equal(t, 1, h.Series(), "empty series should be dropped")
	assert.Nil(t, h.Samples("mem"))
}

func values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}
