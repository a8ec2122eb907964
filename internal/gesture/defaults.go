package gesture

import (
	"time"

	"github.com/golang/geo/r3"
)

// DefaultCatalog returns the built-in poses and motions.
func DefaultCatalog() Catalog {
	folded := CurlRange(0.6, 1)
	swipe := func(id string, dir r3.Vector) MotionDefinition {
		return MotionDefinition{
			ID:                 id,
			MinDistance:        0.15,
			MaxDuration:        500 * time.Millisecond,
			Direction:          &dir,
			DirectionTolerance: 0.3,
			MinVelocity:        ptr(0.2),
		}
	}
	depth := func(id string, dir r3.Vector) MotionDefinition {
		m := swipe(id, dir)
		m.MinDistance = 0.1
		m.StartPose = "open_hand"
		return m
	}

	return Catalog{
		Poses: []PoseDefinition{
			{
				ID:        "open_hand",
				Fingers:   uniform(CurlRange(0, 0.3)),
				Tolerance: 0.25,
			},
			{
				ID:        "fist",
				Fingers:   uniform(CurlRange(0.7, 1)),
				Tolerance: 0.2,
			},
			{
				ID:        "point",
				Fingers:   [5]Requirement{Any(), Extended(), folded, folded, folded},
				Tolerance: 0.25,
			},
			{
				ID:        "peace",
				Fingers:   [5]Requirement{Any(), Extended(), Extended(), folded, folded},
				Tolerance: 0.2,
			},
			{
				ID:        "thumbs_up",
				Fingers:   [5]Requirement{Extended(), folded, folded, folded, folded},
				Palm:      PalmAny,
				Tolerance: 0.2,
			},
			{
				ID:        "rock",
				Fingers:   [5]Requirement{Any(), Extended(), folded, folded, Extended()},
				Tolerance: 0.2,
			},
			{
				ID:        "call",
				Fingers:   [5]Requirement{Extended(), folded, folded, folded, Extended()},
				Tolerance: 0.2,
			},
			{
				ID:        "ok_sign",
				Fingers:   [5]Requirement{CurlRange(0.2, 0.6), CurlRange(0.3, 0.7), Extended(), Extended(), Extended()},
				Tolerance: 0.2,
			},
			{
				ID:        "stop",
				Fingers:   uniform(CurlRange(0, 0.3)),
				Palm:      PalmForward,
				Tolerance: 0.1,
			},
		},
		Motions: []MotionDefinition{
			swipe("swipe_left", r3.Vector{X: -1}),
			swipe("swipe_right", r3.Vector{X: 1}),
			swipe("swipe_up", r3.Vector{Y: 1}),
			swipe("swipe_down", r3.Vector{Y: -1}),
			depth("push", r3.Vector{Z: 1}),
			depth("pull", r3.Vector{Z: -1}),
		},
	}
}

func uniform(r Requirement) [5]Requirement {
	return [5]Requirement{r, r, r, r, r}
}

func ptr[T any](v T) *T { return &v }
