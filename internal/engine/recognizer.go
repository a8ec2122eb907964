package engine

import (
	"slices"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// HandState is the loop's per-hand memory between ticks.
type HandState struct {
	Hand        hand.Side
	Tracking    bool
	CurrentPose string // "" when no pose is accepted
	Confidence  float64
	Hold        time.Duration
	Fired       bool // the current hold has fired at least once
	Tracker     gesture.Tracker
	Pinch       gesture.PinchMemory
}

// NewHandState returns the idle state for side.
func NewHandState(side hand.Side) HandState {
	return HandState{Hand: side, Tracker: gesture.NewTracker(side)}
}

// Recognizer runs one tick of recognition for one hand. It holds the
// matchers built from a filtered catalog and is immutable.
type Recognizer struct {
	catalog  gesture.Catalog
	settings Settings
	poses    *gesture.PoseMatcher
	motions  *gesture.MotionMatcher
	newID    func() string
}

// NewRecognizer filters c by the enabled lists in s and builds matchers.
func NewRecognizer(c gesture.Catalog, s Settings) *Recognizer {
	active := c.Filter(s.EnabledPoses, s.EnabledMotions)
	return &Recognizer{
		catalog:  c,
		settings: s,
		poses:    gesture.NewPoseMatcher(active.Poses),
		motions:  gesture.NewMotionMatcher(active.Motions, s.Sensitivity),
		newID:    uuid.NewString,
	}
}

// Catalog returns the unfiltered catalog.
func (r *Recognizer) Catalog() gesture.Catalog { return r.catalog }

// Settings returns the settings the recognizer was built with.
func (r *Recognizer) Settings() Settings { return r.settings }

// UnknownEnabled lists enabled ids that name nothing in the catalog.
func (r *Recognizer) UnknownEnabled() []string {
	var unknown []string
	for _, id := range r.settings.EnabledPoses {
		if _, ok := r.catalog.Pose(id); !ok {
			unknown = append(unknown, id)
		}
	}
	for _, id := range r.settings.EnabledMotions {
		if _, ok := r.catalog.Motion(id); !ok && !slices.Contains(gesture.DetectorGestures, id) {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

func (r *Recognizer) detectorEnabled(name string) bool {
	return len(r.settings.EnabledMotions) == 0 || slices.Contains(r.settings.EnabledMotions, name)
}

// Step advances hs by one tick with snapshot s and returns the new state
// and the events to emit. The input state is not modified.
func (r *Recognizer) Step(hs HandState, s hand.State, now time.Time) (HandState, []gesture.Event) {
	if !s.TrackingValid {
		return NewHandState(hs.Hand), nil
	}

	var events []gesture.Event
	next := hs
	next.Tracking = true

	match := r.poses.Match(s)
	next.Confidence = match.Confidence
	if id := match.ID(); id != hs.CurrentPose {
		next.CurrentPose = id
		next.Hold = 0
		next.Fired = false
	} else if id != "" {
		next.Hold += r.settings.TickInterval
	}

	if next.CurrentPose != "" &&
		next.Hold >= r.settings.HoldTime &&
		next.Confidence >= PoseConfirmConfidence &&
		!(r.settings.FireOnce && next.Fired) {
		events = append(events, gesture.Event{
			ID:         r.newID(),
			Type:       gesture.EventPose,
			Gesture:    next.CurrentPose,
			Hand:       hs.Hand,
			Confidence: next.Confidence,
			Timestamp:  now,
		})
		next.Hold = 0
		next.Fired = true
	}

	next.Tracker = hs.Tracker.
		TrimBefore(now.Add(-r.settings.MotionTimeout)).
		Append(gesture.Frame{Position: s.PalmPosition, Time: now}, next.CurrentPose)

	if m, ok := r.motions.Match(next.Tracker); ok && m.Confidence > MotionConfirmConfidence {
		events = append(events, r.motionEvent(hs.Hand, m.Motion.ID, m.Confidence, m.Analysis, now))
		next.Tracker = next.Tracker.Reset()
	} else if ev, ok := r.rotation(hs.Hand, next.Tracker, now); ok {
		events = append(events, ev)
		next.Tracker = next.Tracker.Reset()
	}

	var pinch gesture.Pinch
	pinch, next.Pinch = hs.Pinch.Observe(s.PinchDistance())
	if pinch.Pinching {
		name := gesture.GesturePinchOut
		if pinch.Direction == gesture.PinchIn {
			name = gesture.GesturePinchIn
		}
		if r.detectorEnabled(name) {
			events = append(events, gesture.Event{
				ID:         r.newID(),
				Type:       gesture.EventMotion,
				Gesture:    name,
				Hand:       hs.Hand,
				Confidence: pinch.Confidence(),
				Timestamp:  now,
			})
		}
	}

	return next, events
}

func (r *Recognizer) rotation(side hand.Side, t gesture.Tracker, now time.Time) (gesture.Event, bool) {
	rot := gesture.DetectRotation(t.Frames)
	if !rot.Rotating {
		return gesture.Event{}, false
	}
	name := gesture.GestureRotateCCW
	if rot.Direction == gesture.Clockwise {
		name = gesture.GestureRotateCW
	}
	if !r.detectorEnabled(name) {
		return gesture.Event{}, false
	}

	a, ok := gesture.Analyze(t.Frames)
	if !ok {
		return gesture.Event{}, false
	}
	ev := r.motionEvent(side, name, 1, a, now)
	ev.Velocity = nil
	return ev, true
}

func (r *Recognizer) motionEvent(side hand.Side, name string, confidence float64, a gesture.Analysis, now time.Time) gesture.Event {
	start, end := a.Start, a.End
	velocity, duration := a.Velocity, a.Duration
	return gesture.Event{
		ID:            r.newID(),
		Type:          gesture.EventMotion,
		Gesture:       name,
		Hand:          side,
		Confidence:    confidence,
		Timestamp:     now,
		StartPosition: vec(start),
		EndPosition:   vec(end),
		Velocity:      &velocity,
		Duration:      &duration,
	}
}

func vec(v r3.Vector) *r3.Vector { return &v }
