package binding

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
)

// HistorySize bounds the dispatch history.
const HistorySize = 50

// Executor carries out a bound action. Implementations must not block the
// tick for long.
type Executor interface {
	Execute(b Binding, ev gesture.Event) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(b Binding, ev gesture.Event) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(b Binding, ev gesture.Event) error { return f(b, ev) }

// HistoryEntry records what happened to one event.
type HistoryEntry struct {
	Event      gesture.Event `json:"event"`
	Executed   []string      `json:"executed,omitempty"`   // binding ids
	Suppressed []string      `json:"suppressed,omitempty"` // binding ids withheld by cooldown
	Failed     []string      `json:"failed,omitempty"`     // binding ids whose executor returned an error
}

// Dispatcher matches events against the binding set. The set is staged by
// Stage and swapped in at the start of the next tick, so every event of a
// tick sees the same bindings.
type Dispatcher struct {
	executor Executor
	logger   *zap.Logger

	mu        sync.Mutex
	staged    []Binding
	hasStaged bool
	bindings  []Binding
	scope     string
	lastFired map[string]time.Time
	history   []HistoryEntry
}

// NewDispatcher creates a dispatcher with no bindings.
func NewDispatcher(executor Executor, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		executor:  executor,
		logger:    logger.Named("dispatcher"),
		lastFired: make(map[string]time.Time),
	}
}

// Stage validates bs and queues it to replace the binding set at the next
// tick. On error nothing is staged.
func (d *Dispatcher) Stage(bs []Binding) error {
	for _, b := range bs {
		if err := b.Validate(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.staged = slices.Clone(bs)
	d.hasStaged = true
	return nil
}

// Bindings returns the set that will be active after the next tick.
func (d *Dispatcher) Bindings() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasStaged {
		return slices.Clone(d.staged)
	}
	return slices.Clone(d.bindings)
}

// SetContext sets the dispatch context scope.
func (d *Dispatcher) SetContext(scope string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scope = scope
}

// Context returns the dispatch context scope.
func (d *Dispatcher) Context() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scope
}

// History returns the recorded events, oldest first.
func (d *Dispatcher) History() []HistoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.history)
}

// HandleTick dispatches the events of one tick. Every matching binding
// executes unless its cooldown has not elapsed since it last executed.
// Every event is recorded in the history, bound or not.
func (d *Dispatcher) HandleTick(now time.Time, events []gesture.Event) {
	d.mu.Lock()
	if d.hasStaged {
		d.bindings = d.staged
		d.staged = nil
		d.hasStaged = false
		for id := range d.lastFired {
			if !slices.ContainsFunc(d.bindings, func(b Binding) bool { return b.ID == id }) {
				delete(d.lastFired, id)
			}
		}
	}
	bindings, scope := d.bindings, d.scope
	d.mu.Unlock()

	for _, ev := range events {
		d.dispatch(now, ev, bindings, scope)
	}
}

func (d *Dispatcher) dispatch(now time.Time, ev gesture.Event, bindings []Binding, scope string) {
	entry := HistoryEntry{Event: ev}

	var due []Binding
	d.mu.Lock()
	for _, b := range bindings {
		if !b.Matches(ev, scope) {
			continue
		}
		if last, ok := d.lastFired[b.ID]; ok && now.Sub(last) < b.Cooldown() {
			entry.Suppressed = append(entry.Suppressed, b.ID)
			continue
		}
		d.lastFired[b.ID] = now
		due = append(due, b)
	}
	d.mu.Unlock()

	for _, b := range due {
		if err := d.executor.Execute(b, ev); err != nil {
			entry.Failed = append(entry.Failed, b.ID)
			metrics.Dispatch.WithLabelValues(metrics.ResultFailed).Inc()
			d.logger.Warn("action failed",
				zap.String("binding", b.ID),
				zap.String("gesture", ev.Gesture),
				zap.Stringer("action", b.Action),
				zap.Error(err))
			continue
		}
		entry.Executed = append(entry.Executed, b.ID)
		metrics.Dispatch.WithLabelValues(metrics.ResultExecuted).Inc()
		d.logger.Debug("action executed",
			zap.String("binding", b.ID),
			zap.String("gesture", ev.Gesture),
			zap.Stringer("action", b.Action))
	}

	if n := len(entry.Suppressed); n > 0 {
		metrics.Dispatch.WithLabelValues(metrics.ResultSuppressed).Add(float64(n))
	}
	if len(due) == 0 && len(entry.Suppressed) == 0 {
		metrics.Dispatch.WithLabelValues(metrics.ResultUnbound).Inc()
	}

	d.mu.Lock()
	d.history = append(d.history, entry)
	if len(d.history) > HistorySize {
		d.history = slices.Clone(d.history[len(d.history)-HistorySize:])
	}
	d.mu.Unlock()
}
