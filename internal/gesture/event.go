package gesture

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// EventType distinguishes pose confirmations from motions.
type EventType string

const (
	EventPose   EventType = "pose"
	EventMotion EventType = "motion"
)

// Gesture names produced by the specialized detectors rather than by a
// catalog entry. They can be enabled and bound like any motion.
const (
	GestureRotateCW  = "rotate_cw"
	GestureRotateCCW = "rotate_ccw"
	GesturePinchIn   = "pinch_in"
	GesturePinchOut  = "pinch_out"
)

// DetectorGestures lists the specialized detector gestures.
var DetectorGestures = []string{GestureRotateCW, GestureRotateCCW, GesturePinchIn, GesturePinchOut}

// Event is an immutable recognition result. The motion fields are set for
// motion events only.
type Event struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Gesture       string         `json:"gesture"`
	Hand          hand.Side      `json:"hand"`
	Confidence    float64        `json:"confidence"`
	Timestamp     time.Time      `json:"timestamp"`
	StartPosition *r3.Vector     `json:"startPosition,omitempty"`
	EndPosition   *r3.Vector     `json:"endPosition,omitempty"`
	Velocity      *float64       `json:"velocity,omitempty"`
	Duration      *time.Duration `json:"duration,omitempty"`
}
