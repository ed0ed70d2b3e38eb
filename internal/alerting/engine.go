package alerting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/metrics"
)

// DefaultHistoryLimit is the AlertHistory limit used when none is given.
const DefaultHistoryLimit = 100

// Notifier receives alert lifecycle events. Implementations must not block
// on network I/O; Engine calls Notify synchronously after releasing its lock.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ev Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// Engine evaluates metric submissions against rules and manages alerts.
// A single mutex guards rules, history and alerts so that the breach check,
// dedup and alert creation for a submission are atomic.
type Engine struct {
	mu sync.Mutex

	rules   *RuleRegistry
	history *HistoryStore
	alerts  *AlertStore

	notifier         Notifier
	historyRetention time.Duration
	now              func() time.Time
	logger           *zap.Logger

	stats *EngineStats
}

// EngineStats tracks engine statistics using atomic operations for lock-free access.
type EngineStats struct {
	MetricsSubmitted atomic.Int64
	RulesEvaluated   atomic.Int64
	AlertsTriggered  atomic.Int64
	AlertsSuppressed atomic.Int64
	AlertsResolved   atomic.Int64
}

// Options configures the engine.
type Options struct {
	// HistorySize is the number of samples kept per metric.
	HistorySize int
	// AlertRetention is how long resolved alerts are kept.
	AlertRetention time.Duration
	// HistoryRetention is the age after which samples are trimmed by Sweep.
	HistoryRetention time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultOptions returns default engine options.
func DefaultOptions() *Options {
	return &Options{
		HistorySize:      DefaultHistorySize,
		AlertRetention:   DefaultAlertRetention,
		HistoryRetention: time.Hour,
		Clock:            time.Now,
	}
}

// NewEngine creates an engine that reports lifecycle events to notifier.
// notifier may be nil.
func NewEngine(notifier Notifier, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	historyRetention := opts.HistoryRetention
	if historyRetention <= 0 {
		historyRetention = time.Hour
	}

	return &Engine{
		rules:            NewRuleRegistry(),
		history:          NewHistoryStore(opts.HistorySize),
		alerts:           NewAlertStore(opts.AlertRetention),
		notifier:         notifier,
		historyRetention: historyRetention,
		now:              clock,
		logger:           logger,
		stats:            &EngineStats{},
	}
}

// SubmitMetric records a sample at the current time and evaluates every
// enabled rule for the metric. It returns the alerts created by this call.
func (e *Engine) SubmitMetric(metric string, value float64, tags map[string]string) []*Alert {
	return e.SubmitMetricAt(e.now(), metric, value, tags)
}

// SubmitMetricAt records a sample at a specific time (useful for testing).
func (e *Engine) SubmitMetricAt(now time.Time, metric string, value float64, tags map[string]string) []*Alert {
	e.stats.MetricsSubmitted.Add(1)
	metrics.MetricsSubmittedTotal.Inc()

	e.mu.Lock()
	e.history.Append(metric, Sample{Value: value, Timestamp: now})

	var created []*Alert
	for _, rule := range e.rules.ForMetric(metric) {
		e.stats.RulesEvaluated.Add(1)
		metrics.RulesEvaluatedTotal.Inc()

		if alert := e.evaluateLocked(rule, metric, value, tags, now); alert != nil {
			created = append(created, alert.Clone())
		}
	}
	e.updateGaugesLocked()
	e.mu.Unlock()

	for _, alert := range created {
		e.notify(Event{Action: ActionTriggered, Alert: alert, Time: now})
	}
	return created
}

// evaluateLocked applies one rule to a submission. Must be called with lock held.
func (e *Engine) evaluateLocked(rule *Rule, metric string, value float64, tags map[string]string, now time.Time) *Alert {
	if !rule.Breaches(value) {
		return nil
	}
	if !rule.matchesFilter(metric, value, tags) {
		return nil
	}

	if n := rule.Condition.ConsecutiveCount; n > 1 {
		since := now.Add(-rule.Condition.Window())
		recent := e.history.Recent(metric, since, n)
		if len(recent) < n {
			return nil
		}
		for _, s := range recent {
			if !rule.Breaches(s.Value) {
				return nil
			}
		}
	}

	if existing := e.alerts.FiringFor(rule.ID); existing != nil {
		e.stats.AlertsSuppressed.Add(1)
		metrics.AlertsSuppressedTotal.Inc()
		return nil
	}

	alert := &Alert{
		ID:        e.alerts.NextID(rule.ID, now),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Severity:  rule.Severity,
		Message:   formatAlertMessage(rule, value),
		Timestamp: now,
		Status:    StatusFiring,
		Value:     value,
		Threshold: rule.Condition.Threshold,
		Tags:      mergeTags(rule.Tags, tags),
		Metadata: Metadata{
			Metric:            metric,
			Operator:          rule.Condition.Operator,
			TimeWindowSeconds: rule.Condition.TimeWindowSeconds,
		},
		Channels: append([]string(nil), rule.Channels...),
	}
	e.alerts.Put(alert)

	e.stats.AlertsTriggered.Add(1)
	metrics.AlertsTriggeredTotal.WithLabelValues(string(alert.Severity)).Inc()
	e.logger.Info("alert triggered",
		zap.String("alert_id", alert.ID),
		zap.String("rule_id", rule.ID),
		zap.String("severity", string(alert.Severity)),
		zap.Float64("value", value),
	)
	return alert
}

// ResolveAlert transitions a firing alert to resolved and notifies the
// alert's channels. Unknown or already resolved ids are a no-op.
func (e *Engine) ResolveAlert(id string) bool {
	return e.ResolveAlertAt(e.now(), id)
}

// ResolveAlertAt resolves an alert at a specific time (useful for testing).
func (e *Engine) ResolveAlertAt(now time.Time, id string) bool {
	e.mu.Lock()
	alert, ok := e.alerts.Resolve(id, now)
	var snapshot *Alert
	if ok {
		snapshot = alert.Clone()
		e.updateGaugesLocked()
	}
	e.mu.Unlock()

	if !ok {
		return false
	}

	e.stats.AlertsResolved.Add(1)
	metrics.AlertsResolvedTotal.Inc()
	e.logger.Info("alert resolved",
		zap.String("alert_id", snapshot.ID),
		zap.String("rule_id", snapshot.RuleID),
	)
	e.notify(Event{Action: ActionResolved, Alert: snapshot, Time: now})
	return true
}

func (e *Engine) notify(ev Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ev)
}

// AddRule inserts or overwrites a rule. No validation is performed; a
// malformed rule simply never matches.
func (e *Engine) AddRule(rule *Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules.Add(rule)
	if err := e.rules.Get(rule.ID).FilterError(); err != nil {
		e.logger.Warn("rule filter does not compile, rule will never match",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
	}
}

// RemoveRule removes a rule by id.
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rules.Remove(id)
}

// GetRule returns a copy of a rule by id.
func (e *Engine) GetRule(id string) (*Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule := e.rules.Get(id)
	if rule == nil {
		return nil, false
	}
	return rule.Clone(), true
}

// Rules returns copies of all rules in insertion order.
func (e *Engine) Rules() []*Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := e.rules.List()
	out := make([]*Rule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}

// ActiveAlerts returns copies of firing alerts, newest first.
func (e *Engine) ActiveAlerts() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	return cloneAlerts(e.alerts.Active())
}

// AlertHistory returns up to limit alerts of any status, newest first.
// A non-positive limit uses DefaultHistoryLimit.
func (e *Engine) AlertHistory(limit int) []*Alert {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return cloneAlerts(e.alerts.History(limit))
}

// GetAlert returns a copy of an alert by id.
func (e *Engine) GetAlert(id string) (*Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.alerts.Get(id)
	if a == nil {
		return nil, false
	}
	return a.Clone(), true
}

// History returns the stored samples for a metric, oldest first.
func (e *Engine) History(metric string) []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.history.Samples(metric)
}

// SweepResult reports what a maintenance pass removed.
type SweepResult struct {
	AlertsRemoved  int
	SamplesRemoved int
}

// Sweep removes resolved alerts past retention and trims metric history
// to the history retention window.
func (e *Engine) Sweep(now time.Time) SweepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := SweepResult{
		AlertsRemoved:  e.alerts.Sweep(now),
		SamplesRemoved: e.history.TrimBefore(now.Add(-e.historyRetention)),
	}
	metrics.SweepRemovedTotal.WithLabelValues("alerts").Add(float64(res.AlertsRemoved))
	metrics.SweepRemovedTotal.WithLabelValues("samples").Add(float64(res.SamplesRemoved))
	e.updateGaugesLocked()
	return res
}

// Run performs Sweep every interval until ctx is canceled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := e.Sweep(e.now())
			if res.AlertsRemoved > 0 || res.SamplesRemoved > 0 {
				e.logger.Debug("maintenance sweep",
					zap.Int("alerts_removed", res.AlertsRemoved),
					zap.Int("samples_removed", res.SamplesRemoved),
				)
			}
		}
	}
}

// updateGaugesLocked refreshes state gauges. Must be called with lock held.
func (e *Engine) updateGaugesLocked() {
	metrics.AlertsFiring.Set(float64(e.alerts.FiringCount()))
	metrics.HistorySeries.Set(float64(e.history.Series()))
}

// EngineStatsSnapshot is a snapshot of engine statistics for reporting.
type EngineStatsSnapshot struct {
	MetricsSubmitted int64 `json:"metrics_submitted"`
	RulesEvaluated   int64 `json:"rules_evaluated"`
	AlertsTriggered  int64 `json:"alerts_triggered"`
	AlertsSuppressed int64 `json:"alerts_suppressed"`
	AlertsResolved   int64 `json:"alerts_resolved"`
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() EngineStatsSnapshot {
	return EngineStatsSnapshot{
		MetricsSubmitted: e.stats.MetricsSubmitted.Load(),
		RulesEvaluated:   e.stats.RulesEvaluated.Load(),
		AlertsTriggered:  e.stats.AlertsTriggered.Load(),
		AlertsSuppressed: e.stats.AlertsSuppressed.Load(),
		AlertsResolved:   e.stats.AlertsResolved.Load(),
	}
}

func cloneAlerts(in []*Alert) []*Alert {
	out := make([]*Alert, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
