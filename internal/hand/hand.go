// Package hand turns raw per-joint samples into per-hand snapshots:
// finger curl and splay, palm orientation and palm position.
package hand

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// Side identifies which hand a sample belongs to.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Sides lists both hands in processing order.
var Sides = []Side{Left, Right}

// ParseSide parses "left" or "right", case-insensitively.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	}
	return "", fmt.Errorf("unknown hand %q", s)
}

// Finger indexes FingerState arrays.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// ParseFinger parses a finger name as returned by Finger.String.
func ParseFinger(s string) (Finger, error) {
	for i, name := range fingerNames {
		if name == s {
			return Finger(i), nil
		}
	}
	return 0, fmt.Errorf("unknown finger %q", s)
}

// Curl thresholds for the derived extended and curled flags.
const (
	ExtendedBelow = 0.3
	CurledAbove   = 0.7
)

// FingerState describes one finger.
type FingerState struct {
	Curl       float64   `json:"curl"`  // 0 straight, 1 fully curled
	Splay      float64   `json:"splay"` // -1..1, signed spread from the middle finger
	IsExtended bool      `json:"isExtended"`
	IsCurled   bool      `json:"isCurled"`
	Tip        r3.Vector `json:"tip"`
}

// NewFingerState clamps curl and splay into range and derives the flags.
func NewFingerState(curl, splay float64, tip r3.Vector) FingerState {
	curl = clamp(curl, 0, 1)
	return FingerState{
		Curl:       curl,
		Splay:      clamp(splay, -1, 1),
		IsExtended: curl < ExtendedBelow,
		IsCurled:   curl > CurledAbove,
		Tip:        tip,
	}
}

// State is the snapshot of one hand for a single tick. Only Hand and
// TrackingValid are meaningful when tracking is not valid.
type State struct {
	Hand          Side                    `json:"hand"`
	TrackingValid bool                    `json:"trackingValid"`
	PalmPosition  r3.Vector               `json:"palmPosition"`
	PalmNormal    r3.Vector               `json:"palmNormal"`
	PalmDirection r3.Vector               `json:"palmDirection"`
	Fingers       [NumFingers]FingerState `json:"fingers"`
}

// Untracked returns the snapshot for a hand the tracking source lost.
func Untracked(side Side) State {
	return State{Hand: side}
}

// PinchDistance is the distance between the thumb and index fingertips.
func (s State) PinchDistance() float64 {
	return s.Fingers[Thumb].Tip.Distance(s.Fingers[Index].Tip)
}

// Curls returns the curl of every finger.
func (s State) Curls() [NumFingers]float64 {
	var out [NumFingers]float64
	for i, f := range s.Fingers {
		out[i] = f.Curl
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
