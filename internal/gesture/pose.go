// Package gesture provides declarative pose and motion catalogs and the
// matchers and detectors that score hand snapshots against them.
package gesture

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// RequirementKind selects how a finger is scored.
type RequirementKind string

const (
	RequireNone      RequirementKind = "none"
	RequireExtended  RequirementKind = "extended"
	RequireCurled    RequirementKind = "curled"
	RequireCurlRange RequirementKind = "curlRange"
)

// Requirement is the per-finger constraint of a pose.
type Requirement struct {
	Kind RequirementKind `json:"kind"`
	Min  float64         `json:"min,omitempty"`
	Max  float64         `json:"max,omitempty"`
}

// Any accepts every finger state.
func Any() Requirement { return Requirement{Kind: RequireNone} }

// Extended requires curl below hand.ExtendedBelow.
func Extended() Requirement { return Requirement{Kind: RequireExtended} }

// Curled requires curl above hand.CurledAbove.
func Curled() Requirement { return Requirement{Kind: RequireCurled} }

// CurlRange requires curl within [min, max], with partial credit outside.
func CurlRange(min, max float64) Requirement {
	return Requirement{Kind: RequireCurlRange, Min: min, Max: max}
}

// Score rates a finger against the requirement in [0,1]. Outside a curl
// range the score falls off linearly, reaching 0 half a unit away.
func (r Requirement) Score(f hand.FingerState) float64 {
	switch r.Kind {
	case RequireExtended:
		return boolScore(f.IsExtended)
	case RequireCurled:
		return boolScore(f.IsCurled)
	case RequireCurlRange:
		var outside float64
		switch {
		case f.Curl < r.Min:
			outside = r.Min - f.Curl
		case f.Curl > r.Max:
			outside = f.Curl - r.Max
		}
		return math.Max(0, 1-2*outside)
	default:
		return 1
	}
}

func (r Requirement) validate() error {
	switch r.Kind {
	case "", RequireNone, RequireExtended, RequireCurled:
		return nil
	case RequireCurlRange:
		if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
			return fmt.Errorf("curl range [%g, %g] must satisfy 0 <= min <= max <= 1", r.Min, r.Max)
		}
		return nil
	}
	return fmt.Errorf("unknown requirement %q", r.Kind)
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// PalmDirection names the direction the palm normal should face.
// Directions are in the sensor frame: up is +Y, right is +X and
// forward (toward the sensor) is +Z.
type PalmDirection string

const (
	PalmAny      PalmDirection = "any"
	PalmUp       PalmDirection = "up"
	PalmDown     PalmDirection = "down"
	PalmLeft     PalmDirection = "left"
	PalmRight    PalmDirection = "right"
	PalmForward  PalmDirection = "forward"
	PalmBackward PalmDirection = "backward"
)

var palmVectors = map[PalmDirection]r3.Vector{
	PalmUp:       {Y: 1},
	PalmDown:     {Y: -1},
	PalmLeft:     {X: -1},
	PalmRight:    {X: 1},
	PalmForward:  {Z: 1},
	PalmBackward: {Z: -1},
}

// Vector returns the unit vector for d. It reports false for "any" and
// the empty value, which carry no constraint.
func (d PalmDirection) Vector() (r3.Vector, bool) {
	v, ok := palmVectors[d]
	return v, ok
}

func (d PalmDirection) valid() bool {
	if d == "" || d == PalmAny {
		return true
	}
	_, ok := palmVectors[d]
	return ok
}

// PoseDefinition is a static hand configuration. It is immutable once
// loaded into a catalog.
type PoseDefinition struct {
	ID        string                       `json:"id"`
	Fingers   [hand.NumFingers]Requirement `json:"fingers"`
	Palm      PalmDirection                `json:"palm,omitempty"`
	Tolerance float64                      `json:"tolerance"`
}

// Score returns the mean of the finger terms and, when a palm direction is
// set, the palm alignment term (dot+1)/2. An untracked hand scores 0.
func (p *PoseDefinition) Score(s hand.State) float64 {
	if !s.TrackingValid {
		return 0
	}

	var sum float64
	terms := 0
	for i, req := range p.Fingers {
		sum += req.Score(s.Fingers[i])
		terms++
	}
	if want, ok := p.Palm.Vector(); ok {
		sum += (s.PalmNormal.Normalize().Dot(want) + 1) / 2
		terms++
	}
	return sum / float64(terms)
}

// Accepts reports whether confidence clears the pose's tolerance.
func (p *PoseDefinition) Accepts(confidence float64) bool {
	return confidence >= 1-p.Tolerance-scoreEpsilon
}

// scoreEpsilon absorbs float rounding in threshold comparisons.
const scoreEpsilon = 1e-9
