package gesture

import (
	"time"

	"github.com/golang/geo/r3"
)

// MotionDefinition is a bounded-duration palm movement. Optional limits are
// nil when unset. It is immutable once loaded into a catalog.
type MotionDefinition struct {
	ID                 string        `json:"id"`
	StartPose          string        `json:"startPose,omitempty"`
	MinDistance        float64       `json:"minDistance"`
	MaxDuration        time.Duration `json:"maxDuration"`
	Direction          *r3.Vector    `json:"direction,omitempty"` // unit vector
	DirectionTolerance float64       `json:"directionTolerance,omitempty"`
	MinVelocity        *float64      `json:"minVelocity,omitempty"`
	MaxVelocity        *float64      `json:"maxVelocity,omitempty"`
}

// Analysis summarizes a run of tracker frames.
type Analysis struct {
	Start        r3.Vector
	End          r3.Vector
	Displacement r3.Vector
	Direction    r3.Vector // zero when Distance is 0
	Distance     float64
	Duration     time.Duration
	Velocity     float64 // distance units per second
}

// Analyze derives displacement, direction, duration and velocity from the
// first and last frames. It needs at least two frames spanning a positive
// duration.
func Analyze(frames []Frame) (Analysis, bool) {
	if len(frames) < 2 {
		return Analysis{}, false
	}
	first, last := frames[0], frames[len(frames)-1]

	a := Analysis{
		Start:        first.Position,
		End:          last.Position,
		Displacement: last.Position.Sub(first.Position),
		Duration:     last.Time.Sub(first.Time),
	}
	if a.Duration <= 0 {
		return Analysis{}, false
	}

	a.Distance = a.Displacement.Norm()
	if a.Distance > 0 {
		a.Direction = a.Displacement.Mul(1 / a.Distance)
	}
	a.Velocity = a.Distance / a.Duration.Seconds()
	return a, true
}

// Score rates an analysis against the definition. sensitivity scales the
// required distance: 2 halves it. It reports false when a hard limit fails.
func (d *MotionDefinition) Score(a Analysis, sensitivity float64) (float64, bool) {
	if sensitivity <= 0 {
		sensitivity = 1
	}

	if a.Duration > d.MaxDuration {
		return 0, false
	}
	if a.Distance < d.MinDistance/sensitivity {
		return 0, false
	}
	if d.MinVelocity != nil && a.Velocity < *d.MinVelocity {
		return 0, false
	}
	if d.MaxVelocity != nil && a.Velocity > *d.MaxVelocity {
		return 0, false
	}

	if d.Direction == nil {
		return 1, true
	}
	score := (a.Direction.Dot(d.Direction.Normalize()) + 1) / 2
	if score < 1-d.DirectionTolerance-scoreEpsilon {
		return 0, false
	}
	return score, true
}

// MotionMatch is the best motion found in a tracker.
type MotionMatch struct {
	Motion     *MotionDefinition
	Confidence float64
	Analysis   Analysis
}

// MotionMatcher scores trackers against an immutable motion catalog.
type MotionMatcher struct {
	motions     []MotionDefinition
	sensitivity float64
}

// NewMotionMatcher creates a matcher. The slice is copied.
func NewMotionMatcher(motions []MotionDefinition, sensitivity float64) *MotionMatcher {
	cp := make([]MotionDefinition, len(motions))
	copy(cp, motions)
	return &MotionMatcher{motions: cp, sensitivity: sensitivity}
}

// Motions returns the catalog the matcher scores against.
func (m *MotionMatcher) Motions() []MotionDefinition {
	return m.motions
}

// Match returns the highest-confidence motion in t, first found on ties.
// Definitions with a start pose only match trackers whose oldest frame was
// recorded in that pose.
func (m *MotionMatcher) Match(t Tracker) (MotionMatch, bool) {
	a, ok := Analyze(t.Frames)
	if !ok {
		return MotionMatch{}, false
	}

	var best MotionMatch
	found := false
	for i := range m.motions {
		def := &m.motions[i]
		if def.StartPose != "" && def.StartPose != t.StartPose {
			continue
		}
		confidence, ok := def.Score(a, m.sensitivity)
		if !ok {
			continue
		}
		if !found || confidence > best.Confidence {
			best = MotionMatch{Motion: def, Confidence: confidence, Analysis: a}
			found = true
		}
	}
	return best, found
}
