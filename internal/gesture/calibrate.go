package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

// ErrNoSamples is returned when calibration receives no usable samples.
var ErrNoSamples = errors.New("no samples provided")

// palmAlignment is the cosine above which a mean palm normal is pinned to
// the nearest named direction (about 30°).
const palmAlignment = 0.866

// Calibrator derives pose definitions from recorded hand snapshots.
type Calibrator struct {
	// Margin widens each finger's observed curl range on both sides.
	Margin float64
	// Tolerance is assigned to calibrated poses.
	Tolerance float64
}

// NewCalibrator creates a Calibrator with the default margin and tolerance.
func NewCalibrator() *Calibrator {
	return &Calibrator{Margin: 0.1, Tolerance: 0.2}
}

// Sample is one recorded calibration frame.
type Sample struct {
	Landmarks  []detector.Point3D `json:"landmarks"`
	Handedness string             `json:"handedness"`
	Timestamp  int64              `json:"timestamp"`
}

// CalibrateSamples parses raw JSON samples, builds hand snapshots from their
// landmarks and calibrates a pose from them.
func (c *Calibrator) CalibrateSamples(id string, samples []json.RawMessage) (PoseDefinition, error) {
	if len(samples) == 0 {
		return PoseDefinition{}, ErrNoSamples
	}

	states := make([]hand.State, 0, len(samples))
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return PoseDefinition{}, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) != detector.NumLandmarks {
			return PoseDefinition{}, fmt.Errorf("sample %d has %d landmarks, expected %d",
				i, len(sample.Landmarks), detector.NumLandmarks)
		}

		side, ok := hand.SideOf(sample.Handedness)
		if !ok {
			side = hand.Right
		}
		lm := detector.HandLandmarks{Handedness: sample.Handedness}
		copy(lm.Points[:], sample.Landmarks)
		states = append(states, hand.Build(side, lm))
	}

	return c.Calibrate(id, states)
}

// Calibrate turns tracked snapshots into a curl-range pose. Each finger's
// range spans the observed curls widened by Margin; the palm constraint is
// set when the mean palm normal lies close to a named direction.
func (c *Calibrator) Calibrate(id string, states []hand.State) (PoseDefinition, error) {
	if id == "" {
		return PoseDefinition{}, errors.New("pose id is required")
	}

	var (
		lo, hi  [hand.NumFingers]float64
		normals r3.Vector
		n       int
	)
	for i := range lo {
		lo[i], hi[i] = math.Inf(1), math.Inf(-1)
	}

	for _, s := range states {
		if !s.TrackingValid {
			continue
		}
		for f, fs := range s.Fingers {
			lo[f] = math.Min(lo[f], fs.Curl)
			hi[f] = math.Max(hi[f], fs.Curl)
		}
		normals = normals.Add(s.PalmNormal)
		n++
	}
	if n == 0 {
		return PoseDefinition{}, ErrNoSamples
	}

	pose := PoseDefinition{ID: id, Palm: PalmAny, Tolerance: c.Tolerance}
	for f := range pose.Fingers {
		pose.Fingers[f] = CurlRange(
			math.Max(0, lo[f]-c.Margin),
			math.Min(1, hi[f]+c.Margin),
		)
	}
	pose.Palm = nearestPalmDirection(normals.Normalize())

	return pose, nil
}

func nearestPalmDirection(normal r3.Vector) PalmDirection {
	best, bestDot := PalmAny, palmAlignment
	for _, d := range []PalmDirection{PalmUp, PalmDown, PalmLeft, PalmRight, PalmForward, PalmBackward} {
		v, _ := d.Vector()
		if dot := normal.Dot(v); dot > bestDot {
			best, bestDot = d, dot
		}
	}
	return best
}
