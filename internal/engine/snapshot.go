package engine

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// Snapshot is a read-only view of the loop published after every tick.
type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Hands     []HandSnapshot `json:"hands"`
	LastEvent *gesture.Event `json:"lastEvent,omitempty"`
}

// HandSnapshot is the published state of one hand.
type HandSnapshot struct {
	Hand       hand.Side       `json:"hand"`
	Tracking   bool            `json:"tracking"`
	Pose       string          `json:"pose,omitempty"`
	Confidence float64         `json:"confidence"`
	HoldMs     int64           `json:"holdMs"`
	Motion     *MotionProgress `json:"motion,omitempty"`
}

// MotionProgress describes the movement buffered in a hand's tracker.
type MotionProgress struct {
	Frames     int     `json:"frames"`
	Distance   float64 `json:"distance"`
	DurationMs int64   `json:"durationMs"`
}

func snapshotHand(hs HandState) HandSnapshot {
	out := HandSnapshot{
		Hand:       hs.Hand,
		Tracking:   hs.Tracking,
		Pose:       hs.CurrentPose,
		Confidence: hs.Confidence,
		HoldMs:     hs.Hold.Milliseconds(),
	}
	if a, ok := gesture.Analyze(hs.Tracker.Frames); ok {
		out.Motion = &MotionProgress{
			Frames:     len(hs.Tracker.Frames),
			Distance:   a.Distance,
			DurationMs: a.Duration.Milliseconds(),
		}
	}
	return out
}

// Hand returns the snapshot of side.
func (s *Snapshot) Hand(side hand.Side) (HandSnapshot, bool) {
	for _, h := range s.Hands {
		if h.Hand == side {
			return h, true
		}
	}
	return HandSnapshot{}, false
}
