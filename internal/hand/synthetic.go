package hand

import "github.com/golang/geo/r3"

// Synthetic builds a tracked State directly from finger curls, for tests
// and calibration tools that do not start from landmarks. The palm faces
// normal and points up; fingertips sit on a row above the palm centre,
// and the thumb tip is placed farther away the straighter the thumb is.
func Synthetic(side Side, curls [NumFingers]float64, palmPosition, normal r3.Vector) State {
	s := State{
		Hand:          side,
		TrackingValid: true,
		PalmPosition:  palmPosition,
		PalmNormal:    normal.Normalize(),
		PalmDirection: r3.Vector{Y: 1},
	}
	for f := Thumb; f < NumFingers; f++ {
		tip := palmPosition.Add(r3.Vector{X: 0.02 * float64(f-Middle), Y: 0.08 * (1 - curls[f])})
		if f == Thumb {
			tip = palmPosition.Add(r3.Vector{X: -0.02 - 0.06*(1-curls[f]), Y: 0.03})
		}
		s.Fingers[f] = NewFingerState(curls[f], 0, tip)
	}
	return s
}

// Uniform returns curls with every finger set to c.
func Uniform(c float64) [NumFingers]float64 {
	return [NumFingers]float64{c, c, c, c, c}
}
