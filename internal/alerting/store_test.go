package alerting

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertStoreSameMillisecondOrder(t *testing.T) {
	s := NewAlertStore(0)
	for range 11 {
		id := s.NextID("r", t0)
		s.Put(&Alert{ID: id, RuleID: "r", Status: StatusFiring, Timestamp: t0})
		_, ok := s.Resolve(id, t0)
		require.True(t, ok)
	}

	base := fmt.Sprintf("r-%d", t0.UnixMilli())
	history := s.History(0)
	require.Len(t, history, 11)
	assert.Equal(t, base+"-11", history[0].ID)
	assert.Equal(t, base+"-10", history[1].ID)
	assert.Equal(t, base+"-9", history[2].ID)
	assert.Equal(t, base, history[10].ID)
}

func TestAlertStoreSweepForgetsOrder(t *testing.T) {
	s := NewAlertStore(DefaultAlertRetention)
	s.Put(&Alert{ID: "a", RuleID: "r", Status: StatusFiring, Timestamp: t0})
	_, ok := s.Resolve("a", t0)
	require.True(t, ok)

	assert.Equal(t, 1, s.Sweep(t0.Add(DefaultAlertRetention+1)))
	assert.Empty(t, s.seq)
	assert.Equal(t, 0, s.Len())
}
