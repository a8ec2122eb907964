package hand

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/detector"
)

// straightnessSpan maps finger straightness onto curl: a chain whose
// endpoints are 40% shorter than its path length counts as fully curled.
const straightnessSpan = 0.6

// SideOf maps MediaPipe handedness ("Left"/"Right") to a Side.
func SideOf(handedness string) (Side, bool) {
	switch strings.ToLower(handedness) {
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return "", false
}

// Build derives a tracked State from 21 landmarks. It is a pure function.
//
// The palm normal points out of the palm, the palm direction points from the
// wrist toward the middle finger, and the palm position is the centroid of the
// wrist and the four finger MCP joints.
func Build(side Side, lm detector.HandLandmarks) State {
	wrist := lm.Vector(detector.Wrist)
	indexMCP := lm.Vector(detector.IndexMCP)
	middleMCP := lm.Vector(detector.MiddleMCP)
	ringMCP := lm.Vector(detector.RingMCP)
	pinkyMCP := lm.Vector(detector.PinkyMCP)

	normal := indexMCP.Sub(wrist).Cross(pinkyMCP.Sub(wrist)).Normalize()
	if side == Left {
		normal = normal.Mul(-1)
	}
	direction := middleMCP.Sub(wrist).Normalize()

	position := wrist.Add(indexMCP).Add(middleMCP).Add(ringMCP).Add(pinkyMCP).Mul(1.0 / 5)

	s := State{
		Hand:          side,
		TrackingValid: true,
		PalmPosition:  position,
		PalmNormal:    normal,
		PalmDirection: direction,
	}

	for f, chain := range detector.FingerChains {
		var joints [4]r3.Vector
		for i, idx := range chain {
			joints[i] = lm.Vector(idx)
		}
		s.Fingers[f] = NewFingerState(
			curlOf(joints),
			splayOf(joints[1].Sub(joints[0]), direction, normal),
			joints[3],
		)
	}

	return s
}

// curlOf measures how far a joint chain deviates from a straight line.
func curlOf(joints [4]r3.Vector) float64 {
	var path float64
	for i := 1; i < len(joints); i++ {
		path += joints[i].Distance(joints[i-1])
	}
	if path == 0 {
		return 0
	}
	straightness := joints[3].Distance(joints[0]) / path
	return (1 - straightness) / straightnessSpan
}

// splayOf is the signed angle between a finger's proximal segment and the
// palm direction, measured around the palm normal and scaled so that 45°
// maps to ±1.
func splayOf(segment, direction, normal r3.Vector) float64 {
	if segment.Norm2() == 0 || direction.Norm2() == 0 {
		return 0
	}
	sin := direction.Cross(segment).Dot(normal)
	cos := direction.Dot(segment)
	return math.Atan2(sin, cos) / (math.Pi / 4)
}
