package gesture

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// MaxFrames caps a tracker's buffer; older frames are evicted first.
const MaxFrames = 100

// Frame is one palm sample.
type Frame struct {
	Position r3.Vector `json:"position"`
	Time     time.Time `json:"time"`
	Pose     string    `json:"pose,omitempty"`
}

// Tracker is the chronological palm buffer for one hand. Its methods are
// pure: they return an updated copy and never modify the receiver's frames.
type Tracker struct {
	Hand       hand.Side
	Frames     []Frame
	IsTracking bool
	StartTime  time.Time
	StartPose  string // pose of the oldest retained frame
}

// NewTracker returns an idle tracker for side.
func NewTracker(side hand.Side) Tracker {
	return Tracker{Hand: side}
}

// Append adds f with the pose held at that frame, evicting the oldest
// frames beyond MaxFrames.
func (t Tracker) Append(f Frame, pose string) Tracker {
	f.Pose = pose
	t.IsTracking = true

	keep := t.Frames
	if len(keep) >= MaxFrames {
		keep = keep[len(keep)-MaxFrames+1:]
	}
	frames := make([]Frame, 0, len(keep)+1)
	frames = append(frames, keep...)
	t.Frames = append(frames, f)
	return t.rebase()
}

// TrimBefore drops frames older than cutoff. A tracker left empty stops
// tracking.
func (t Tracker) TrimBefore(cutoff time.Time) Tracker {
	i := 0
	for i < len(t.Frames) && t.Frames[i].Time.Before(cutoff) {
		i++
	}
	if i == 0 {
		return t
	}
	if i == len(t.Frames) {
		return t.Reset()
	}
	frames := make([]Frame, len(t.Frames)-i)
	copy(frames, t.Frames[i:])
	t.Frames = frames
	return t.rebase()
}

// rebase points the start of the trajectory at the oldest retained frame.
func (t Tracker) rebase() Tracker {
	t.StartTime = t.Frames[0].Time
	t.StartPose = t.Frames[0].Pose
	return t
}

// Reset clears the buffer and stops tracking.
func (t Tracker) Reset() Tracker {
	return Tracker{Hand: t.Hand}
}
