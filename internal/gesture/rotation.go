package gesture

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Rotation detector parameters.
const (
	MinRotationFrames = 5
	RotationThreshold = math.Pi / 4
	// MinRotationRadius rejects circles fitted to tracking jitter.
	MinRotationRadius = 0.01
)

// RotationDirection is the sense of a rotation seen from the sensor.
type RotationDirection string

const (
	Clockwise        RotationDirection = "cw"
	CounterClockwise RotationDirection = "ccw"
)

// Rotation is the result of angular accumulation over a frame run.
type Rotation struct {
	Rotating  bool
	Direction RotationDirection
	Angle     float64 // accumulated |angle| in radians
	Center    r3.Vector
}

// DetectRotation accumulates the signed angle swept by the palm around the
// centre of its path in the x-y plane. Each step's delta is wrapped into
// [-π, π]. Negative totals are clockwise. Paths no circle fits, such as
// straight lines, do not rotate.
func DetectRotation(frames []Frame) Rotation {
	if len(frames) < MinRotationFrames {
		return Rotation{}
	}

	center, radius, ok := fitCircle(frames)
	if !ok || radius < MinRotationRadius {
		return Rotation{}
	}

	var total float64
	prev := math.Atan2(frames[0].Position.Y-center.Y, frames[0].Position.X-center.X)
	for _, f := range frames[1:] {
		angle := math.Atan2(f.Position.Y-center.Y, f.Position.X-center.X)
		total += wrapAngle(angle - prev)
		prev = angle
	}

	r := Rotation{Angle: math.Abs(total), Center: center}
	if r.Angle < RotationThreshold {
		return r
	}
	r.Rotating = true
	r.Direction = CounterClockwise
	if total < 0 {
		r.Direction = Clockwise
	}
	return r
}

// fitCircle fits a circle to the frames in the x-y plane by linear least
// squares (x²+y²+Dx+Ey+F = 0) and returns its centre and radius.
func fitCircle(frames []Frame) (r3.Vector, float64, bool) {
	n := len(frames)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	var z float64
	for i, f := range frames {
		x, y := f.Position.X, f.Position.Y
		a.Set(i, 0, x)
		a.Set(i, 1, y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(x*x + y*y))
		z += f.Position.Z
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return r3.Vector{}, 0, false
	}
	d, e, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	cx, cy := -d/2, -e/2
	r2 := cx*cx + cy*cy - f
	if !finite(cx) || !finite(cy) || !finite(r2) || r2 <= 0 {
		return r3.Vector{}, 0, false
	}
	return r3.Vector{X: cx, Y: cy, Z: z / float64(n)}, math.Sqrt(r2), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// wrapAngle maps a into [-π, π].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
