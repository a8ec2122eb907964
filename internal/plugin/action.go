package plugin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
)

var (
	// ErrRateLimited is returned when the action rate exceeds the limit.
	ErrRateLimited = errors.New("action rate limit exceeded")
	// ErrQueueFull is returned when the worker is too far behind.
	ErrQueueFull = errors.New("action queue full")
	// ErrNoRoute is returned for an action type no plugin is routed to.
	ErrNoRoute = errors.New("no plugin routed for action")
)

// Names of the bundled plugins.
const (
	KeyboardPlugin      = "keyboard"
	SystemControlPlugin = "system-control"
)

// Runner runs a single plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// ActionConfig configures an ActionExecutor.
type ActionConfig struct {
	// Routes maps action types to plugin names. Missing types fall back to
	// DefaultRoutes.
	Routes        map[binding.ActionType]string
	RatePerSecond float64
	Burst         int
	QueueSize     int
}

// DefaultRoutes sends system actions to the system-control plugin and
// everything else to the keyboard plugin.
func DefaultRoutes() map[binding.ActionType]string {
	routes := make(map[binding.ActionType]string, len(binding.ActionTypes))
	for _, t := range binding.ActionTypes {
		routes[t] = KeyboardPlugin
	}
	routes[binding.ActionMuteToggle] = SystemControlPlugin
	routes[binding.ActionNavigate] = SystemControlPlugin
	return routes
}

type job struct {
	plugin *Plugin
	req    *Request
}

// ActionExecutor implements binding.Executor by routing each action to a
// plugin. Execute only validates and enqueues; Run performs the calls so
// the recognition tick never waits on a subprocess.
type ActionExecutor struct {
	manager *Manager
	runner  Runner
	routes  map[binding.ActionType]string
	limiter *rate.Limiter
	queue   chan job
	logger  *zap.Logger
}

var _ binding.Executor = (*ActionExecutor)(nil)

// NewActionExecutor creates an ActionExecutor.
func NewActionExecutor(m *Manager, runner Runner, cfg ActionConfig, logger *zap.Logger) *ActionExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	routes := DefaultRoutes()
	for t, name := range cfg.Routes {
		routes[t] = name
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &ActionExecutor{
		manager: m,
		runner:  runner,
		routes:  routes,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		queue:   make(chan job, cfg.QueueSize),
		logger:  logger.Named("actions"),
	}
}

// Route returns the plugin name an action type is sent to.
func (a *ActionExecutor) Route(t binding.ActionType) (string, bool) {
	name, ok := a.routes[t]
	return name, ok
}

// Execute queues the action bound by b for ev.
func (a *ActionExecutor) Execute(b binding.Binding, ev gesture.Event) error {
	name, ok := a.routes[b.Action.Type]
	if !ok {
		return fmt.Errorf("%w %s", ErrNoRoute, b.Action.Type)
	}
	p, err := a.manager.Get(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if !a.limiter.Allow() {
		metrics.ExecutorRateLimited.Inc()
		return ErrRateLimited
	}

	req := &Request{
		Action:     string(b.Action.Type),
		Direction:  b.Action.Direction,
		Target:     b.Action.Target,
		Payload:    b.Action.Payload,
		Gesture:    ev.Gesture,
		Hand:       string(ev.Hand),
		Confidence: ev.Confidence,
		Binding:    b.ID,
	}

	select {
	case a.queue <- job{plugin: p, req: req}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes queued actions until ctx is cancelled.
func (a *ActionExecutor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-a.queue:
			a.run(ctx, j)
		}
	}
}

func (a *ActionExecutor) run(ctx context.Context, j job) {
	fields := []zap.Field{
		zap.String("plugin", j.plugin.Manifest.Name),
		zap.String("action", j.req.Action),
		zap.String("binding", j.req.Binding),
	}

	resp, err := a.runner.Execute(ctx, j.plugin, j.req)
	if err != nil {
		a.logger.Error("plugin call failed", append(fields, zap.Error(err))...)
		return
	}
	if !resp.Success {
		a.logger.Warn("plugin reported failure", append(fields, zap.String("error", resp.Error))...)
		return
	}
	a.logger.Debug("plugin call succeeded", fields...)
}
