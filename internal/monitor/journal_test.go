package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/models"
	"github.com/good-yellow-bee/alertd/internal/storage"
)

// memRepo is an in-memory AlertEventRepository.
type memRepo struct {
	mu     sync.Mutex
	events []*models.AlertEvent
}

func (m *memRepo) Create(_ context.Context, e *models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) List(_ context.Context, _ models.AlertEventFilter) ([]*models.AlertEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AlertEvent(nil), m.events...), int64(len(m.events)), nil
}

func (m *memRepo) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *memRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func journalEvent(action alerting.Action, at time.Time) alerting.Event {
	return alerting.Event{
		Action: action,
		Time:   at,
		Alert: &alerting.Alert{
			ID:       "r-1",
			RuleID:   "r",
			RuleName: "R",
			Severity: alerting.SeverityWarning,
			Message:  "R: m is 5 (threshold > 1)",
			Value:    5,
		},
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	repo := &memRepo{}
	j := NewJournal(repo, JournalOptions{BufferSize: 2, Logger: zaptest.NewLogger(t)})

	now := time.Now()
	for range 5 {
		j.Notify(journalEvent(alerting.ActionTriggered, now))
	}
	assert.Equal(t, int64(3), j.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx) // drains the queue on exit
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, int64(2), j.Written())
}

func TestJournalWritesAndCleansUp(t *testing.T) {
	repo := &memRepo{}
	j := NewJournal(repo, JournalOptions{Retention: time.Hour, Logger: zaptest.NewLogger(t)})

	old := time.Now().Add(-2 * time.Hour)
	j.Notify(journalEvent(alerting.ActionTriggered, old))
	j.Notify(journalEvent(alerting.ActionResolved, time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return repo.Len() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	j.cleanup(context.Background(), time.Now())
	events, total, err := j.List(context.Background(), models.AlertEventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.AlertActionResolved, events[0].Action)
}

func TestServiceJournalSQLite(t *testing.T) {
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	s := newTestService(t, Options{Journal: store.AlertEvents()})
	require.True(t, s.JournalEnabled())
	s.AddRule(&alerting.Rule{
		ID:        "failed-transactions",
		Name:      "Failed Transactions",
		Severity:  alerting.SeverityCritical,
		Condition: alerting.Condition{Metric: "failed_transactions", Operator: alerting.OpGreaterThan, Threshold: 5, TimeWindowSeconds: 600},
		Enabled:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	created := s.SubmitMetric("failed_transactions", 9, map[string]string{"chain": "polygon"})
	require.Len(t, created, 1)
	require.NoError(t, s.ResolveAlert(created[0].ID))

	require.Eventually(t, func() bool {
		_, total, err := s.Events(context.Background(), models.AlertEventFilter{RuleID: "failed-transactions"})
		return err == nil && total == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	closeService(t, s)

	events, _, err := s.Events(context.Background(), models.AlertEventFilter{AlertID: created[0].ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "polygon", events[0].Tags["chain"])
}
