// Package engine runs the tick-driven recognition loop: it samples the
// tracking source, confirms held poses, detects motions and hands every
// tick's events to the registered sinks.
package engine

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/metrics"
)

// Source supplies one hand snapshot per tracked hand. Hands missing from
// the result are treated as untracked.
type Source interface {
	Sample(now time.Time) map[hand.Side]hand.State
}

// SourceFunc adapts a function to Source.
type SourceFunc func(now time.Time) map[hand.Side]hand.State

// Sample implements Source.
func (f SourceFunc) Sample(now time.Time) map[hand.Side]hand.State { return f(now) }

// Sink consumes the events of every tick, including ticks without events.
type Sink interface {
	HandleTick(now time.Time, events []gesture.Event)
}

// PoseObserver is told when a hand's best pose changes. pose is "" when the
// hand no longer matches anything.
type PoseObserver func(side hand.Side, pose string, confidence float64)

// Engine owns all per-hand recognition state. Ticks never overlap; catalog
// and settings changes are staged and applied at the start of the next
// tick.
type Engine struct {
	source Source
	driver Driver
	logger *zap.Logger

	tickMu    sync.Mutex
	hands     map[hand.Side]HandState
	ticks     uint64
	lastEvent *gesture.Event

	mu         sync.Mutex
	recognizer *Recognizer
	staged     *Recognizer
	sinks      []Sink
	observers  []PoseObserver
	scheduled  bool

	enabled    atomic.Bool
	resetHands atomic.Bool
	snapshot   atomic.Pointer[Snapshot]
}

// New creates a disabled engine. The catalog and settings are validated.
func New(source Source, driver Driver, c gesture.Catalog, s Settings, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r, err := newRecognizer(c, s)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		source:     source,
		driver:     driver,
		logger:     logger.Named("engine"),
		recognizer: r,
		hands:      make(map[hand.Side]HandState),
	}
	e.warnUnknown(r)
	e.publish(time.Time{})
	return e, nil
}

func newRecognizer(c gesture.Catalog, s Settings) (*Recognizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recognition settings: %w", err)
	}
	return NewRecognizer(c, s), nil
}

func (e *Engine) warnUnknown(r *Recognizer) {
	for _, id := range r.UnknownEnabled() {
		e.logger.Warn("enabled gesture not in catalog", zap.String("gesture", id))
	}
}

// AddSink registers a sink. Sinks run on the tick goroutine in
// registration order.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// OnPoseChange registers a pose observer.
func (e *Engine) OnPoseChange(fn PoseObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// StageCatalog validates c and applies it at the next tick.
func (e *Engine) StageCatalog(c gesture.Catalog) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := newRecognizer(c, e.pendingLocked().Settings())
	if err != nil {
		return err
	}
	e.warnUnknown(r)
	e.staged = r
	return nil
}

// StageSettings validates s and applies it at the next tick.
func (e *Engine) StageSettings(s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := newRecognizer(e.pendingLocked().Catalog(), s)
	if err != nil {
		return err
	}
	e.warnUnknown(r)
	e.staged = r
	return nil
}

// pendingLocked returns the staged recognizer or, when nothing is staged,
// the active one.
func (e *Engine) pendingLocked() *Recognizer {
	if e.staged != nil {
		return e.staged
	}
	return e.recognizer
}

// Catalog returns the catalog that will be in effect after the next tick.
func (e *Engine) Catalog() gesture.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLocked().Catalog()
}

// Settings returns the settings that will be in effect after the next tick.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLocked().Settings()
}

// Enabled reports whether the engine is requesting ticks.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetEnabled starts or stops recognition. Disabling stops future tick
// requests; a tick already running completes. Enabling starts from idle
// hand state.
func (e *Engine) SetEnabled(on bool) {
	was := e.enabled.Swap(on)
	if on {
		metrics.Enabled.Set(1)
	} else {
		metrics.Enabled.Set(0)
	}
	if was == on {
		return
	}

	e.logger.Info("recognition toggled", zap.Bool("enabled", on))
	if !on {
		return
	}

	e.resetHands.Store(true)
	e.schedule()
}

func (e *Engine) schedule() {
	e.mu.Lock()
	if e.scheduled {
		e.mu.Unlock()
		return
	}
	e.scheduled = true
	e.mu.Unlock()

	e.driver.RequestTick(e.onTick)
}

func (e *Engine) onTick(now time.Time) {
	e.mu.Lock()
	e.scheduled = false
	e.mu.Unlock()

	if !e.enabled.Load() {
		return
	}
	e.Tick(now)
	if e.enabled.Load() {
		e.schedule()
	}
}

// Snapshot returns the state published by the last tick. Enabled always
// reports the current flag, even when a tick published after a toggle.
func (e *Engine) Snapshot() *Snapshot {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil
	}
	if on := e.enabled.Load(); snap.Enabled != on {
		cp := *snap
		cp.Enabled = on
		return &cp
	}
	return snap
}

type poseChange struct {
	side       hand.Side
	pose       string
	confidence float64
}

// Tick runs one recognition tick at now and returns its events. The driver
// calls it; tests may call it directly.
func (e *Engine) Tick(now time.Time) []gesture.Event {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	start := time.Now()

	e.mu.Lock()
	applied := e.staged != nil
	if applied {
		e.recognizer = e.staged
		e.staged = nil
		e.logger.Debug("applied staged recognizer",
			zap.Int("poses", len(e.recognizer.Catalog().Poses)),
			zap.Int("motions", len(e.recognizer.Catalog().Motions)))
	}
	r := e.recognizer
	sinks := e.sinks
	observers := e.observers
	e.mu.Unlock()

	if e.resetHands.Swap(false) {
		e.hands = make(map[hand.Side]HandState)
	}
	if applied {
		for side := range e.hands {
			if !slices.Contains(r.Settings().EnabledHands, side) {
				delete(e.hands, side)
			}
		}
	}

	samples := e.source.Sample(now)

	var (
		events  []gesture.Event
		changes []poseChange
	)
	for _, side := range r.Settings().EnabledHands {
		prev, ok := e.hands[side]
		if !ok {
			prev = NewHandState(side)
		}
		s, ok := samples[side]
		if !ok {
			s = hand.Untracked(side)
		}

		next, evs := r.Step(prev, s, now)
		e.hands[side] = next
		events = append(events, evs...)
		if next.CurrentPose != prev.CurrentPose {
			changes = append(changes, poseChange{side, next.CurrentPose, next.Confidence})
		}
	}

	e.ticks++
	if len(events) > 0 {
		last := events[len(events)-1]
		e.lastEvent = &last
	}
	e.publish(now)

	for _, c := range changes {
		e.logger.Debug("pose changed", zap.String("hand", string(c.side)), zap.String("pose", c.pose))
		for _, fn := range observers {
			fn(c.side, c.pose, c.confidence)
		}
	}
	for _, ev := range events {
		metrics.Events.WithLabelValues(string(ev.Type), ev.Gesture).Inc()
		e.logger.Debug("gesture event",
			zap.String("gesture", ev.Gesture),
			zap.String("hand", string(ev.Hand)),
			zap.Float64("confidence", ev.Confidence))
	}
	for _, s := range sinks {
		s.HandleTick(now, events)
	}

	metrics.Ticks.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	return events
}

// publish stores a snapshot. Callers hold tickMu or run before the engine
// is shared.
func (e *Engine) publish(now time.Time) {
	snap := &Snapshot{
		Enabled:   e.enabled.Load(),
		Tick:      e.ticks,
		Time:      now,
		LastEvent: e.lastEvent,
	}
	for _, side := range hand.Sides {
		if hs, ok := e.hands[side]; ok {
			snap.Hands = append(snap.Hands, snapshotHand(hs))
		}
	}
	e.snapshot.Store(snap)
}
