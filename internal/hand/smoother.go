package hand

import (
	"github.com/ayusman/mudra/internal/detector"
)

// Smoother applies per-hand exponential smoothing to raw landmarks before
// they are built into a State. Landmarks that moved less than the noise
// threshold keep their previous smoothed position.
//
// A Smoother is not safe for concurrent use; the tracking source owns it.
type Smoother struct {
	factor float64
	noise  float64
	prev   map[Side]detector.HandLandmarks
}

// NewSmoother creates a Smoother. factor is the weight of the previous
// sample in [0,1]: 0 disables smoothing, values near 1 follow slowly.
// noise is the minimum per-landmark movement that is passed through.
func NewSmoother(factor, noise float64) *Smoother {
	return &Smoother{
		factor: clamp(factor, 0, 1),
		noise:  noise,
		prev:   make(map[Side]detector.HandLandmarks),
	}
}

// Apply returns the smoothed landmarks for side and remembers them.
func (s *Smoother) Apply(side Side, lm detector.HandLandmarks) detector.HandLandmarks {
	prev, ok := s.prev[side]
	if !ok {
		s.prev[side] = lm
		return lm
	}

	out := lm
	for i := range lm.Points {
		p, c := prev.Points[i], lm.Points[i]
		if p.Vector().Distance(c.Vector()) < s.noise {
			out.Points[i] = p
			continue
		}
		out.Points[i] = detector.Point3D{
			X: p.X*s.factor + c.X*(1-s.factor),
			Y: p.Y*s.factor + c.Y*(1-s.factor),
			Z: p.Z*s.factor + c.Z*(1-s.factor),
		}
	}

	s.prev[side] = out
	return out
}

// Reset forgets the history for side, typically when tracking is lost.
func (s *Smoother) Reset(side Side) {
	delete(s.prev, side)
}
