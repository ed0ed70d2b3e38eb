package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/metrics"
	"github.com/good-yellow-bee/alertd/internal/models"
	"github.com/good-yellow-bee/alertd/internal/storage"
)

// JournalOptions configures a Journal.
type JournalOptions struct {
	// BufferSize is the queue capacity. Events beyond it are dropped.
	BufferSize int
	// Retention is how long events are kept. Zero keeps them forever.
	Retention time.Duration
	// CleanupInterval is how often expired events are deleted.
	CleanupInterval time.Duration
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultJournalOptions returns default journal options.
func DefaultJournalOptions() JournalOptions {
	return JournalOptions{
		BufferSize:      1000,
		Retention:       30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// Journal persists alert lifecycle events on its own goroutine. Notify
// never blocks; when the queue is full the event is dropped and counted.
type Journal struct {
	repo   storage.AlertEventRepository
	events chan *models.AlertEvent
	opts   JournalOptions
	logger *zap.Logger

	dropped atomic.Int64
	written atomic.Int64
}

// NewJournal creates a journal writing to repo.
func NewJournal(repo storage.AlertEventRepository, opts JournalOptions) *Journal {
	defaults := DefaultJournalOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaults.CleanupInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Journal{
		repo:   repo,
		events: make(chan *models.AlertEvent, opts.BufferSize),
		opts:   opts,
		logger: opts.Logger,
	}
}

// Notify queues a lifecycle event for persistence.
func (j *Journal) Notify(ev alerting.Event) {
	record := toAlertEvent(ev)
	select {
	case j.events <- record:
	default:
		j.dropped.Add(1)
		metrics.JournalDroppedTotal.Inc()
		j.logger.Warn("journal queue full, dropping event",
			zap.String("alert_id", record.AlertID),
			zap.String("action", string(record.Action)),
		)
	}
}

// Run writes queued events until ctx is canceled, then drains the queue.
func (j *Journal) Run(ctx context.Context) {
	ticker := time.NewTicker(j.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.drain()
			return
		case e := <-j.events:
			j.write(ctx, e)
		case <-ticker.C:
			j.cleanup(ctx, time.Now())
		}
	}
}

func (j *Journal) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e := <-j.events:
			j.write(ctx, e)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, e *models.AlertEvent) {
	if err := j.repo.Create(ctx, e); err != nil {
		j.logger.Error("failed to write alert event",
			zap.String("alert_id", e.AlertID),
			zap.Error(err),
		)
		return
	}
	j.written.Add(1)
	metrics.JournalWrittenTotal.Inc()
}

func (j *Journal) cleanup(ctx context.Context, now time.Time) {
	if j.opts.Retention <= 0 {
		return
	}
	deleted, err := j.repo.DeleteBefore(ctx, now.Add(-j.opts.Retention))
	if err != nil {
		j.logger.Error("failed to delete expired alert events", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.logger.Debug("deleted expired alert events", zap.Int64("count", deleted))
	}
}

// List returns journal events newest first.
func (j *Journal) List(ctx context.Context, filter models.AlertEventFilter) ([]*models.AlertEvent, int64, error) {
	return j.repo.List(ctx, filter)
}

// Dropped returns the number of events dropped due to backpressure.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Written returns the number of events persisted.
func (j *Journal) Written() int64 {
	return j.written.Load()
}

func toAlertEvent(ev alerting.Event) *models.AlertEvent {
	a := ev.Alert
	at := ev.Time
	if at.IsZero() {
		at = a.Timestamp
	}
	return &models.AlertEvent{
		ID:        uuid.New().String(),
		AlertID:   a.ID,
		RuleID:    a.RuleID,
		RuleName:  a.RuleName,
		Severity:  string(a.Severity),
		Action:    models.AlertAction(ev.Action),
		Message:   a.Message,
		Value:     a.Value,
		Threshold: a.Threshold,
		Tags:      a.Tags,
		CreatedAt: at,
	}
}
