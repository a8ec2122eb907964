package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize catalog watcher")

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a catalog file when it changes and hands every valid
// catalog to a callback. Invalid catalogs are logged and ignored, leaving
// the previous catalog in place.
type Watcher struct {
	path      string
	tolerance float64
	onChange  func(gesture.Catalog)
	watcher   *fsnotify.Watcher
	logger    *zap.Logger

	// Debounce is the quiet period after the last event before reloading.
	Debounce time.Duration
}

// NewWatcher creates a watcher for path. The containing directory is
// watched so that editors replacing the file by rename are seen.
func NewWatcher(path string, defaultTolerance float64, onChange func(gesture.Catalog), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		path:      abs,
		tolerance: defaultTolerance,
		onChange:  onChange,
		watcher:   fw,
		logger:    logger.Named("catalog"),
		Debounce:  DefaultDebounce,
	}, nil
}

// Run processes filesystem events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			reload = timer.C

		case <-reload:
			reload = nil
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

// Reload loads the file once and passes it to the callback when valid.
func (w *Watcher) Reload() bool {
	c, err := LoadFile(w.path, w.tolerance)
	if err != nil {
		metrics.CatalogReloads.WithLabelValues(metrics.ReloadRejected).Inc()
		w.logger.Warn("catalog reload rejected", zap.String("path", w.path), zap.Error(err))
		return false
	}

	metrics.CatalogReloads.WithLabelValues(metrics.ReloadApplied).Inc()
	w.logger.Info("catalog reloaded",
		zap.String("path", w.path),
		zap.Int("poses", len(c.Poses)),
		zap.Int("motions", len(c.Motions)))
	if w.onChange != nil {
		w.onChange(c)
	}
	return true
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
