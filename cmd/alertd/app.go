package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/api"
	"github.com/good-yellow-bee/alertd/internal/api/health"
	"github.com/good-yellow-bee/alertd/internal/metrics"
	"github.com/good-yellow-bee/alertd/internal/monitor"
	"github.com/good-yellow-bee/alertd/internal/notifier"
	"github.com/good-yellow-bee/alertd/internal/security"
	"github.com/good-yellow-bee/alertd/internal/storage"
	"github.com/good-yellow-bee/alertd/pkg/config"
)

// app holds the wired components of a running server.
type app struct {
	cfg     *Config
	logger  *zap.Logger
	store   *storage.SQLiteStorage
	service *monitor.Service
	api     *api.Server
	metrics *metrics.Server
	watcher *monitor.RuleWatcher
	running atomic.Bool
}

func newApp(cfg *Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	info := config.GetBuildInfo()
	metrics.SetBuildInfo(info.Version, info.Commit, info.BuildTime)

	channelEnv, err := notifier.LoadEnvConfig()
	if err != nil {
		return nil, err
	}

	opts := monitor.Options{
		Engine: &alerting.Options{
			HistorySize:      cfg.Alerting.HistorySize,
			AlertRetention:   cfg.Alerting.AlertRetention,
			HistoryRetention: cfg.Alerting.HistoryRetention,
		},
		Dispatcher: notifier.DispatcherOptions{
			DeliveryTimeout: cfg.Notifier.DeliveryTimeout,
			MaxConcurrent:   cfg.Notifier.MaxConcurrent,
		},
		Deliverer:     notifier.NewTransport(notifier.WithPagerDutyURL(channelEnv.PagerDutyURL)),
		SweepInterval: cfg.Alerting.SweepInterval,
		Logger:        logger,
	}

	if cfg.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		a.store = storage.NewSQLiteStorage(cfg.Journal.Path)
		if err := a.store.Open(); err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		if err := a.store.Migrate(); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
		opts.Journal = a.store.AlertEvents()
		opts.JournalOptions = monitor.JournalOptions{
			BufferSize: cfg.Journal.BufferSize,
			Retention:  cfg.Journal.Retention,
		}
		logger.Info("alert journal initialized", zap.String("path", cfg.Journal.Path))
	}

	a.service = monitor.New(opts)

	if err := a.registerChannels(channelEnv); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.registerRules(); err != nil {
		a.Close()
		return nil, err
	}

	a.api, err = api.New(&api.Config{
		Address:         cfg.Server.HTTPAddress,
		RateLimitPerIP:  cfg.Server.RateLimitPerIP,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TLS: security.ServerTLSConfig{
			CertFile:     cfg.Server.TLSCertFile,
			KeyFile:      cfg.Server.TLSKeyFile,
			ClientCAFile: cfg.Server.TLSClientCAFile,
		},
		Verbose: cfg.Verbose,
	}, a.service, logger.Named("api"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create api server: %w", err)
	}
	a.api.RegisterHealthChecker(health.NewRunningChecker("engine", a.running.Load))
	if a.store != nil {
		a.api.RegisterHealthChecker(health.NewSQLiteChecker(a.store.DB()))
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewServer(cfg.Metrics.Address, logger.Named("metrics"))
	}

	return a, nil
}

func (a *app) registerChannels(channelEnv notifier.EnvConfig) error {
	if a.cfg.Notifier.LoadDefaultChannels {
		for _, ch := range notifier.DefaultChannels(channelEnv) {
			a.service.AddChannel(ch)
			a.logger.Info("channel registered",
				zap.String("channel_id", ch.ID),
				zap.String("type", string(ch.Type())),
				zap.Bool("enabled", ch.Enabled()))
		}
	}
	if a.cfg.Notifier.ChannelsFile != "" {
		channels, err := notifier.LoadChannelsFromFile(a.cfg.Notifier.ChannelsFile, []byte(a.cfg.Notifier.ChannelsKey))
		if err != nil {
			return fmt.Errorf("load channels: %w", err)
		}
		for _, ch := range channels {
			a.service.AddChannel(ch)
		}
		a.logger.Info("channels loaded", zap.String("path", a.cfg.Notifier.ChannelsFile), zap.Int("count", len(channels)))
	}
	return nil
}

func (a *app) registerRules() error {
	if a.cfg.Alerting.LoadDefaultRules {
		for _, r := range alerting.DefaultRules() {
			a.service.AddRule(r)
		}
	}
	if a.cfg.Alerting.RulesFile == "" {
		return nil
	}

	w, err := monitor.NewRuleWatcher(a.cfg.Alerting.RulesFile, a.service, a.logger.Named("rules"))
	if err != nil {
		return err
	}
	n, err := w.Load()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	a.logger.Info("rules loaded", zap.String("path", a.cfg.Alerting.RulesFile), zap.Int("count", n))
	if a.cfg.Alerting.WatchRules {
		a.watcher = w
	}
	return nil
}

// Run serves until ctx is canceled or a component fails. Shutdown runs in
// order: the API and metrics servers drain their requests, then the engine
// stops and the journal flushes, then in-flight notifications finish.
func (a *app) Run(ctx context.Context) error {
	serviceCtx, stopService := context.WithCancel(context.WithoutCancel(ctx))
	defer stopService()
	serviceDone := make(chan error, 1)
	a.running.Store(true)
	go func() {
		defer a.running.Store(false)
		serviceDone <- a.service.Run(serviceCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.api.Run(gctx)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}
	if a.metrics != nil {
		g.Go(func() error {
			return a.metrics.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return a.metrics.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	stopService()
	if err := <-serviceDone; err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
		runErr = err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.service.Close(closeCtx); err != nil {
		a.logger.Warn("notifications still in flight at shutdown", zap.Error(err))
	}

	return runErr
}

// Close releases the journal database.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close journal", zap.Error(err))
		}
		a.store = nil
	}
}
