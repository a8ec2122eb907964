// Package detector provides the hand tracking source: MediaPipe landmark types,
// the Detector interface and its implementations.
package detector

import "github.com/golang/geo/r3"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerChains lists the four joints of each finger from base to tip,
// ordered thumb, index, middle, ring, pinky.
var FingerChains = [5][4]int{
	{ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	{IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{RingMCP, RingPIP, RingDIP, RingTip},
	{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// Point3D represents a landmark in normalized image coordinates:
// x to the right, y down, z toward the scene (smaller z is closer to the camera).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector converts the point into the engine's right-handed frame:
// x right, y up, z toward the sensor.
func (p Point3D) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: -p.Y, Z: -p.Z}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Vector returns landmark i converted with Point3D.Vector.
func (h *HandLandmarks) Vector(i int) r3.Vector {
	return h.Points[i].Vector()
}

// Scale returns the wrist to middle MCP distance, a size reference that does
// not change as the fingers curl.
func (h *HandLandmarks) Scale() float64 {
	return h.Vector(Wrist).Distance(h.Vector(MiddleMCP))
}

// Translate returns a copy of the hand shifted by (dx, dy, dz) in image coordinates.
func (h HandLandmarks) Translate(dx, dy, dz float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
		h.Points[i].Z += dz
	}
	return h
}
