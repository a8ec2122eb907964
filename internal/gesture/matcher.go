package gesture

import (
	"sort"

	"github.com/ayusman/mudra/internal/hand"
)

// PoseMatch is the result of scoring a hand against one pose.
type PoseMatch struct {
	Pose       *PoseDefinition // nil when nothing matched
	Confidence float64
}

// ID returns the matched pose id, or "" for no match.
func (m PoseMatch) ID() string {
	if m.Pose == nil {
		return ""
	}
	return m.Pose.ID
}

// PoseMatcher scores hand snapshots against an immutable pose catalog.
type PoseMatcher struct {
	poses []PoseDefinition
}

// NewPoseMatcher creates a matcher over poses. The slice is copied.
func NewPoseMatcher(poses []PoseDefinition) *PoseMatcher {
	cp := make([]PoseDefinition, len(poses))
	copy(cp, poses)
	return &PoseMatcher{poses: cp}
}

// Poses returns the catalog the matcher scores against.
func (m *PoseMatcher) Poses() []PoseDefinition {
	return m.poses
}

// Scores returns every accepted pose sorted by confidence in descending
// order. Ties keep catalog order.
func (m *PoseMatcher) Scores(s hand.State) []PoseMatch {
	if !s.TrackingValid {
		return nil
	}

	var matches []PoseMatch
	for i := range m.poses {
		pose := &m.poses[i]
		confidence := pose.Score(s)
		if !pose.Accepts(confidence) {
			continue
		}
		matches = append(matches, PoseMatch{Pose: pose, Confidence: confidence})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	return matches
}

// Match returns the best accepted pose, first found on ties, or a zero
// PoseMatch when none is accepted.
func (m *PoseMatcher) Match(s hand.State) PoseMatch {
	var best PoseMatch
	if !s.TrackingValid {
		return best
	}
	for i := range m.poses {
		pose := &m.poses[i]
		confidence := pose.Score(s)
		if !pose.Accepts(confidence) {
			continue
		}
		if best.Pose == nil || confidence > best.Confidence {
			best = PoseMatch{Pose: pose, Confidence: confidence}
		}
	}
	return best
}
