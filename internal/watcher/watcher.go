// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/config"
	"github.com/hyperjump/rssai/internal/ranking"
	"github.com/hyperjump/rssai/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// ConfigWatcher watches one config file and calls onChange with the reloaded config.
// The parent directory is watched so editors that save by rename are still seen.
type ConfigWatcher struct {
	path     string
	onChange func(*config.Config)
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a ConfigWatcher.
type Option func(*ConfigWatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *ConfigWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long to wait after the last event before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *ConfigWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewConfigWatcher creates a watcher for the config file at path.
func NewConfigWatcher(path string, onChange func(*config.Config), opts ...Option) *ConfigWatcher {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	w := &ConfigWatcher{
		path:     filepath.Clean(abs),
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("config watcher starting", zap.String("path", w.path))
	go w.run(ctx, fw)
	return nil
}

func (w *ConfigWatcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("config watcher error", zap.Error(err))
			}
		}
	}
}

func (w *ConfigWatcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	w.logger.Debug("config file event", zap.String("op", ev.Op.String()))
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.Reload)
}

// Reload loads the config file and passes it to onChange. A file that fails to load
// or validate is logged and ignored; the previous settings stay in effect.
func (w *ConfigWatcher) Reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous settings", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop stops the watcher and releases resources.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// UpdateRanker returns an onChange callback that swaps the ranker's fusion weights.
// Negative weights are rejected.
func UpdateRanker(r *ranking.Ranker, logger *zap.Logger) func(*config.Config) {
	logger = utils.OrNop(logger)
	return func(cfg *config.Config) {
		weights := cfg.Search.Weights()
		if err := weights.Validate(); err != nil {
			logger.Warn("ignoring ranking weights", zap.Error(err))
			return
		}
		r.SetWeights(weights)
		logger.Info("ranking weights updated",
			zap.Float64("semantic_weight", weights.SemanticWeight),
			zap.Float64("lexical_weight", weights.LexicalWeight),
			zap.Float64("decay_per_day", weights.DecayPerDay))
	}
}
