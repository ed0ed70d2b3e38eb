package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// RuleSink receives rules loaded from a file.
type RuleSink interface {
	AddRule(rule *alerting.Rule)
	RemoveRule(id string) bool
}

// RuleWatcher keeps the rules of a YAML file registered and reloads them
// when the file changes. Rules removed from the file are unregistered;
// rules registered from elsewhere are left alone.
type RuleWatcher struct {
	path         string
	sink         RuleSink
	logger       *zap.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	loaded  map[string]bool
	modTime time.Time
}

// NewRuleWatcher creates a watcher for path. logger may be nil.
func NewRuleWatcher(path string, sink RuleSink, logger *zap.Logger) (*RuleWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleWatcher{
		path:         absPath,
		sink:         sink,
		logger:       logger,
		pollInterval: 5 * time.Second,
		loaded:       make(map[string]bool),
	}, nil
}

// Load reads the file and reconciles the registered rules with it. An
// invalid file leaves the current rules untouched.
func (w *RuleWatcher) Load() (int, error) {
	if info, err := os.Stat(w.path); err == nil {
		w.mu.Lock()
		w.modTime = info.ModTime()
		w.mu.Unlock()
	}

	rules, err := alerting.LoadRulesFromFile(w.path)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]bool, len(rules))
	for _, rule := range rules {
		w.sink.AddRule(rule)
		current[rule.ID] = true
	}
	for id := range w.loaded {
		if !current[id] {
			w.sink.RemoveRule(id)
		}
	}
	w.loaded = current
	return len(rules), nil
}

// Run watches the file's directory until ctx is canceled. The directory is
// watched so editors that replace the file are handled.
func (w *RuleWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// fallback for filesystems where fsnotify misses events
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("rule watcher error", zap.Error(err))
		case <-ticker.C:
			if w.changed() {
				w.reload()
			}
		}
	}
}

func (w *RuleWatcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !info.ModTime().Equal(w.modTime)
}

func (w *RuleWatcher) reload() {
	n, err := w.Load()
	if err != nil {
		w.logger.Error("failed to reload rules, keeping previous set",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("rules reloaded", zap.String("path", w.path), zap.Int("rules", n))
}
