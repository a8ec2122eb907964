// Package app wires the recognition pipeline together: the tracking source
// feeds the engine, the engine's events go to the binding dispatcher and
// the feedback outputs, and the dispatcher runs actions through plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// FeedInterval is how often the event feed pushes engine state.
const FeedInterval = 100 * time.Millisecond

// Options configure an App. Nil fields are built from Config.
type Options struct {
	Config config.Config
	Logger *zap.Logger

	// Source replaces the camera tracking source.
	Source engine.Source
	// Driver replaces the wall-clock ticker.
	Driver engine.Driver
	// Runner replaces the plugin subprocess executor.
	Runner plugin.Runner
	// Tray adds the menu bar as a sink and pose observer.
	Tray bool
}

// App is the running system.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	store      *store.Store
	engine     *engine.Engine
	dispatcher *binding.Dispatcher
	plugins    *plugin.Manager
	actions    *plugin.ActionExecutor
	hub        *server.Hub
	server     *server.Server
	watcher    *catalog.Watcher
	capture    *capture.LandmarkSource
	detector   detector.Detector
	tray       *tray.Tray

	mu   sync.Mutex
	base gesture.Catalog
}

// New builds the App and restores the persisted bindings, context and
// enabled flag. Recognition starts ticking if it was enabled.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, logger: logger, ctx: ctx, cancel: cancel}
	if err := a.build(opts); err != nil {
		cancel()
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) build(opts Options) error {
	cfg := a.cfg

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st

	base, err := catalog.LoadOrDefault(cfg.Catalog.Path, cfg.Recognition.PoseTolerance)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.base = base
	merged, err := a.mergedCatalog()
	if err != nil {
		return err
	}

	settings, err := cfg.Recognition.Settings()
	if err != nil {
		return fmt.Errorf("recognition settings: %w", err)
	}

	source := opts.Source
	if source == nil {
		a.detector = newDetector(a.logger)
		a.capture = capture.NewLandmarkSource(
			capture.NewCamera(capture.CameraConfig{DeviceID: cfg.Camera.DeviceID}),
			a.detector,
			capture.SourceConfig{
				MotionThreshold: cfg.Camera.MotionThreshold,
				SmoothingFactor: cfg.Recognition.SmoothingFactor,
				NoiseThreshold:  cfg.Recognition.NoiseThreshold,
			},
			a.logger,
		)
		source = a.capture
	}
	driver := opts.Driver
	if driver == nil {
		driver = engine.NewTickerDriver(a.ctx, settings.TickInterval)
	}

	a.engine, err = engine.New(source, driver, merged, settings, a.logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	a.plugins = plugin.NewManager(cfg.Plugins.Dir, a.logger)
	if err := a.plugins.Discover(); err != nil {
		a.logger.Warn("plugin discovery failed", zap.String("dir", cfg.Plugins.Dir), zap.Error(err))
	}
	runner := opts.Runner
	if runner == nil {
		runner = plugin.NewExecutor(cfg.Plugins.Timeout)
	}
	a.actions = plugin.NewActionExecutor(a.plugins, runner, cfg.Plugins.ActionConfig(), a.logger)
	a.dispatcher = binding.NewDispatcher(a.actions, a.logger)

	a.hub = server.NewHub(a.logger)
	a.engine.AddSink(a.dispatcher)
	a.engine.AddSink(a.hub)
	a.engine.OnPoseChange(a.hub.OnPoseChange)
	if opts.Tray {
		a.tray = tray.New(a.engine)
		a.tray.OnToggle(a.persistEnabled)
		a.engine.AddSink(a.tray)
		a.engine.OnPoseChange(a.tray.OnPoseChange)
	}

	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		a.watcher, err = catalog.NewWatcher(cfg.Catalog.Path, cfg.Recognition.PoseTolerance, a.onCatalogFile, a.logger)
		if err != nil {
			return err
		}
	}

	a.server = server.New(server.Config{
		StaticDir:      staticDir(cfg.Server.StaticDir),
		Store:          a.store,
		Engine:         a.engine,
		Dispatcher:     a.dispatcher,
		Plugins:        a.plugins,
		Hub:            a.hub,
		RefreshCatalog: a.RefreshCatalog,
		Logger:         a.logger,
	})

	return a.restore()
}

// restore reloads the persisted runtime state.
func (a *App) restore() error {
	bindings, err := a.store.Bindings().All()
	if err != nil {
		return fmt.Errorf("load bindings: %w", err)
	}
	if err := a.dispatcher.Stage(bindings); err != nil {
		return fmt.Errorf("stage bindings: %w", err)
	}

	settings := a.store.Settings()
	scope, err := settings.Get(store.SettingContext)
	switch {
	case err == nil:
		a.dispatcher.SetContext(scope)
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("load context: %w", err)
	}

	enabled := settings.Bool(store.SettingEnabled, a.cfg.Recognition.Enabled)
	a.engine.SetEnabled(enabled)

	a.logger.Info("state restored",
		zap.Int("bindings", len(bindings)),
		zap.String("context", a.dispatcher.Context()),
		zap.Bool("enabled", enabled))
	return nil
}

// newDetector prefers the MediaPipe service and falls back to a detector
// that never finds hands.
func newDetector(logger *zap.Logger) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig(), logger)
	if err == nil {
		logger.Info("using MediaPipe hand detection")
		return mp
	}
	logger.Warn("MediaPipe not available, hands will not be detected", zap.Error(err))
	return detector.NewMockDetector()
}

func (a *App) persistEnabled(enabled bool) {
	if err := a.store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
		a.logger.Warn("persisting enabled flag", zap.Error(err))
	}
}

// Run serves until ctx is cancelled or Close is called. The tracking
// source, action worker, event feed and catalog watcher run alongside.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() { a.actions.Run(ctx) })
	start(func() { a.hub.Run(ctx, a.engine, FeedInterval) })
	if a.watcher != nil {
		start(func() { a.watcher.Run(ctx) })
	}
	if a.capture != nil {
		start(func() {
			if err := a.capture.Run(ctx); err != nil {
				a.logger.Error("tracking source failed", zap.Error(err))
			}
		})
	}

	err := a.server.ListenAndServe(ctx, a.cfg.Server.Addr)
	cancel()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Close stops ticking and releases the store, detector and watcher.
func (a *App) Close() error {
	a.cancel()
	return a.closeResources()
}

func (a *App) closeResources() error {
	var errs []error
	if a.engine != nil {
		a.engine.SetEnabled(false)
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// Engine returns the recognition engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Dispatcher returns the binding dispatcher.
func (a *App) Dispatcher() *binding.Dispatcher { return a.dispatcher }

// Store returns the database.
func (a *App) Store() *store.Store { return a.store }

// Plugins returns the plugin manager.
func (a *App) Plugins() *plugin.Manager { return a.plugins }

// Hub returns the event feed.
func (a *App) Hub() *server.Hub { return a.hub }

// Tray returns the menu bar, or nil when it was not requested.
func (a *App) Tray() *tray.Tray { return a.tray }

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.server }

// staticDir returns dir, or the first web directory found near the
// working directory or in the data directory.
func staticDir(dir string) string {
	if dir != "" {
		return dir
	}
	candidates := []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
