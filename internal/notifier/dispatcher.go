package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/metrics"
)

// DefaultDeliveryTimeout bounds a single channel delivery.
const DefaultDeliveryTimeout = 10 * time.Second

// Deliverer sends one event to one channel.
type Deliverer interface {
	Deliver(ctx context.Context, ch Channel, ev alerting.Event) error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// DeliveryTimeout bounds each channel delivery.
	DeliveryTimeout time.Duration
	// MaxConcurrent limits parallel deliveries per event. Zero means unlimited.
	MaxConcurrent int
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// DeliveryResult is the outcome of one channel delivery.
type DeliveryResult struct {
	ChannelID string
	Type      ChannelType
	Err       error
	Duration  time.Duration
}

// Dispatcher fans lifecycle events out to the channels named by the alert.
// It implements alerting.Notifier; Notify never blocks on I/O.
type Dispatcher struct {
	registry  *Registry
	deliverer Deliverer
	logger    *zap.Logger

	timeout       time.Duration
	maxConcurrent int

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher resolving channels through registry.
func NewDispatcher(registry *Registry, deliverer Deliverer, opts DispatcherOptions) *Dispatcher {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		registry:      registry,
		deliverer:     deliverer,
		logger:        opts.Logger,
		timeout:       opts.DeliveryTimeout,
		maxConcurrent: opts.MaxConcurrent,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Notify starts delivery of ev in the background and returns immediately.
func (d *Dispatcher) Notify(ev alerting.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping notification",
			zap.String("alert_id", ev.Alert.ID),
			zap.String("action", string(ev.Action)),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.Dispatch(d.ctx, ev)
	}()
}

// Dispatch delivers ev to every enabled channel of the alert concurrently
// and waits for all deliveries. Failures are logged and counted; one failing
// channel never prevents delivery to the others.
func (d *Dispatcher) Dispatch(ctx context.Context, ev alerting.Event) []DeliveryResult {
	ids := ev.Alert.Channels
	channels := d.registry.Resolve(ids)
	if len(channels) < len(ids) {
		d.logSkipped(ids, channels, ev)
	}
	if len(channels) == 0 {
		return nil
	}

	results := make([]DeliveryResult, len(channels))
	var g errgroup.Group
	if d.maxConcurrent > 0 {
		g.SetLimit(d.maxConcurrent)
	}
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = d.deliver(ctx, ch, ev)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, ev alerting.Event) DeliveryResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	metrics.NotificationsInFlight.Inc()
	defer metrics.NotificationsInFlight.Dec()

	typ := ch.Type()
	start := time.Now()
	err := d.deliverer.Deliver(ctx, ch, ev)
	elapsed := time.Since(start)
	metrics.NotificationDuration.WithLabelValues(string(typ)).Observe(elapsed.Seconds())

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(typ), "failure").Inc()
		d.logger.Error("notification delivery failed",
			zap.String("channel_id", ch.ID),
			zap.String("channel_type", string(typ)),
			zap.String("alert_id", ev.Alert.ID),
			zap.String("action", string(ev.Action)),
			zap.Error(err),
		)
	} else {
		metrics.NotificationsTotal.WithLabelValues(string(typ), "success").Inc()
		d.logger.Debug("notification delivered",
			zap.String("channel_id", ch.ID),
			zap.String("channel_type", string(typ)),
			zap.String("alert_id", ev.Alert.ID),
			zap.Duration("duration", elapsed),
		)
	}

	return DeliveryResult{ChannelID: ch.ID, Type: typ, Err: err, Duration: elapsed}
}

func (d *Dispatcher) logSkipped(ids []string, resolved []Channel, ev alerting.Event) {
	delivered := make(map[string]bool, len(resolved))
	for _, ch := range resolved {
		delivered[ch.ID] = true
	}
	for _, id := range ids {
		if delivered[id] {
			continue
		}
		reason := "missing"
		typ := ChannelType("unknown")
		if ch, ok := d.registry.Get(id); ok {
			reason = "disabled"
			typ = ch.Type()
		}
		metrics.NotificationsTotal.WithLabelValues(string(typ), "skipped").Inc()
		d.logger.Debug("skipping channel",
			zap.String("channel_id", id),
			zap.String("reason", reason),
			zap.String("alert_id", ev.Alert.ID),
		)
	}
}

// Close stops accepting events and waits for in-flight deliveries. If ctx
// expires first, outstanding deliveries are canceled and ctx.Err is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
