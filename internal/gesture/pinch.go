package gesture

import "math"

// Pinch detector parameters.
const (
	// PinchThreshold is the smallest per-tick change in thumb-index distance
	// that counts as pinching.
	PinchThreshold = 0.01
	// PinchFullScale is the per-tick change that maps to confidence 1.
	PinchFullScale = 0.05
)

// PinchDirection tells whether the fingertips are closing or opening.
type PinchDirection string

const (
	PinchIn  PinchDirection = "in"
	PinchOut PinchDirection = "out"
)

// Pinch is one pinch detector reading.
type Pinch struct {
	Pinching  bool
	Direction PinchDirection
	Magnitude float64
}

// Confidence scales the magnitude into [0,1].
func (p Pinch) Confidence() float64 {
	if !p.Pinching {
		return 0
	}
	return math.Min(1, p.Magnitude/PinchFullScale)
}

// PinchMemory is the single-slot memory of the previous distance.
type PinchMemory struct {
	Previous float64
	Valid    bool
}

// Observe compares distance against the remembered one and returns the
// reading together with the memory for the next tick. The first
// observation after a reset only primes the memory.
func (m PinchMemory) Observe(distance float64) (Pinch, PinchMemory) {
	next := PinchMemory{Previous: distance, Valid: true}
	if !m.Valid {
		return Pinch{}, next
	}

	delta := distance - m.Previous
	if math.Abs(delta) < PinchThreshold {
		return Pinch{}, next
	}

	p := Pinch{Pinching: true, Direction: PinchOut, Magnitude: math.Abs(delta)}
	if delta < 0 {
		p.Direction = PinchIn
	}
	return p, next
}
