// Package monitor wires the rule engine, channel registry, dispatcher and
// optional journal into the single service object shared by the HTTP API,
// the rule watcher and the command line.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/models"
	"github.com/good-yellow-bee/alertd/internal/notifier"
	"github.com/good-yellow-bee/alertd/internal/storage"
)

var (
	// ErrAlertNotFound is returned for an unknown alert id.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertResolved is returned when resolving an alert that is not firing.
	ErrAlertResolved = errors.New("alert already resolved")
	// ErrJournalDisabled is returned by journal queries when no journal is configured.
	ErrJournalDisabled = errors.New("alert journal is disabled")
)

// Options configures a Service.
type Options struct {
	// Engine configures history and retention. Nil uses the defaults.
	Engine *alerting.Options
	// Dispatcher configures notification delivery.
	Dispatcher notifier.DispatcherOptions
	// Deliverer defaults to notifier.NewTransport().
	Deliverer notifier.Deliverer
	// Journal is the optional alert event repository.
	Journal storage.AlertEventRepository
	// JournalOptions configures the journal writer.
	JournalOptions JournalOptions
	// SweepInterval is the maintenance period. Defaults to 30s.
	SweepInterval time.Duration
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Service is the alert evaluation and notification dispatch service.
type Service struct {
	engine     *alerting.Engine
	channels   *notifier.Registry
	dispatcher *notifier.Dispatcher
	journal    *Journal

	sweepInterval time.Duration
	logger        *zap.Logger
}

// Stats is a snapshot of service statistics.
type Stats struct {
	alerting.EngineStatsSnapshot
	Rules          int   `json:"rules"`
	Channels       int   `json:"channels"`
	ActiveAlerts   int   `json:"active_alerts"`
	JournalDropped int64 `json:"journal_dropped"`
}

// New creates a service. Construct it once at startup and pass it to every
// collaborator.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deliverer := opts.Deliverer
	if deliverer == nil {
		deliverer = notifier.NewTransport()
	}
	if opts.Dispatcher.Logger == nil {
		opts.Dispatcher.Logger = logger.Named("dispatcher")
	}

	s := &Service{
		channels:      notifier.NewRegistry(),
		sweepInterval: opts.SweepInterval,
		logger:        logger,
	}
	s.dispatcher = notifier.NewDispatcher(s.channels, deliverer, opts.Dispatcher)

	if opts.Journal != nil {
		if opts.JournalOptions.Logger == nil {
			opts.JournalOptions.Logger = logger.Named("journal")
		}
		s.journal = NewJournal(opts.Journal, opts.JournalOptions)
	}

	engineOpts := alerting.DefaultOptions()
	if opts.Engine != nil {
		engineOpts = opts.Engine
	}
	if engineOpts.Logger == nil {
		engineOpts.Logger = logger.Named("engine")
	}
	s.engine = alerting.NewEngine(alerting.NotifierFunc(s.notify), engineOpts)

	return s
}

// notify fans an engine event out to the dispatcher and the journal.
func (s *Service) notify(ev alerting.Event) {
	s.dispatcher.Notify(ev)
	if s.journal != nil {
		s.journal.Notify(ev)
	}
}

// SubmitMetric records a metric value and evaluates the rules for it. It
// returns the alerts created by this submission; delivery happens in the
// background.
func (s *Service) SubmitMetric(metric string, value float64, tags map[string]string) []*alerting.Alert {
	return s.engine.SubmitMetric(metric, value, tags)
}

// AddRule inserts or overwrites a rule without validating it.
func (s *Service) AddRule(rule *alerting.Rule) {
	s.engine.AddRule(rule)
}

// RemoveRule removes a rule by id.
func (s *Service) RemoveRule(id string) bool {
	return s.engine.RemoveRule(id)
}

// Rule returns a rule by id.
func (s *Service) Rule(id string) (*alerting.Rule, bool) {
	return s.engine.GetRule(id)
}

// Rules returns all rules in insertion order.
func (s *Service) Rules() []*alerting.Rule {
	return s.engine.Rules()
}

// AddChannel inserts or overwrites a channel.
func (s *Service) AddChannel(ch notifier.Channel) {
	s.channels.Add(ch)
}

// RemoveChannel removes a channel by id.
func (s *Service) RemoveChannel(id string) bool {
	return s.channels.Remove(id)
}

// Channel returns the public view of a channel.
func (s *Service) Channel(id string) (notifier.ChannelInfo, bool) {
	ch, ok := s.channels.Get(id)
	if !ok {
		return notifier.ChannelInfo{}, false
	}
	return ch.Info(), true
}

// Channels returns the public view of every channel.
func (s *Service) Channels() []notifier.ChannelInfo {
	list := s.channels.List()
	out := make([]notifier.ChannelInfo, len(list))
	for i, ch := range list {
		out[i] = ch.Info()
	}
	return out
}

// ResolveAlert resolves a firing alert and notifies its channels. Resolving
// an unknown or already resolved alert changes nothing and returns
// ErrAlertNotFound or ErrAlertResolved.
func (s *Service) ResolveAlert(id string) error {
	if s.engine.ResolveAlert(id) {
		return nil
	}
	if _, ok := s.engine.GetAlert(id); ok {
		return ErrAlertResolved
	}
	return ErrAlertNotFound
}

// Alert returns an alert by id.
func (s *Service) Alert(id string) (*alerting.Alert, error) {
	a, ok := s.engine.GetAlert(id)
	if !ok {
		return nil, ErrAlertNotFound
	}
	return a, nil
}

// ActiveAlerts returns firing alerts, newest first.
func (s *Service) ActiveAlerts() []*alerting.Alert {
	return s.engine.ActiveAlerts()
}

// AlertHistory returns up to limit alerts of any status, newest first.
// A non-positive limit returns at most 100.
func (s *Service) AlertHistory(limit int) []*alerting.Alert {
	return s.engine.AlertHistory(limit)
}

// History returns the retained samples of a metric, oldest first.
func (s *Service) History(metric string) []alerting.Sample {
	return s.engine.History(metric)
}

// Events queries the alert journal.
func (s *Service) Events(ctx context.Context, filter models.AlertEventFilter) ([]*models.AlertEvent, int64, error) {
	if s.journal == nil {
		return nil, 0, ErrJournalDisabled
	}
	return s.journal.List(ctx, filter)
}

// JournalEnabled reports whether lifecycle events are persisted.
func (s *Service) JournalEnabled() bool {
	return s.journal != nil
}

// Stats returns a snapshot of service statistics.
func (s *Service) Stats() Stats {
	st := Stats{
		EngineStatsSnapshot: s.engine.Stats(),
		Rules:               len(s.engine.Rules()),
		Channels:            len(s.channels.List()),
		ActiveAlerts:        len(s.engine.ActiveAlerts()),
	}
	if s.journal != nil {
		st.JournalDropped = s.journal.Dropped()
	}
	return st
}

// Sweep runs one maintenance pass at now.
func (s *Service) Sweep(now time.Time) alerting.SweepResult {
	return s.engine.Sweep(now)
}

// Run runs periodic maintenance and the journal writer until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.engine.Run(ctx, s.sweepInterval)
		return nil
	})
	if s.journal != nil {
		g.Go(func() error {
			s.journal.Run(ctx)
			return nil
		})
	}

	return g.Wait()
}

// Close waits for in-flight notifications to finish.
func (s *Service) Close(ctx context.Context) error {
	if err := s.dispatcher.Close(ctx); err != nil {
		return fmt.Errorf("close dispatcher: %w", err)
	}
	return nil
}
