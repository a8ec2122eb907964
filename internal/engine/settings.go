package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// Confirmation thresholds. A pose needs at least PoseConfirmConfidence to
// fire; a motion needs more than MotionConfirmConfidence.
const (
	PoseConfirmConfidence   = 0.7
	MotionConfirmConfidence = 0.7
)

// Settings tune the recognition loop.
type Settings struct {
	// HoldTime is how long a pose must be held before it fires.
	HoldTime time.Duration
	// MotionTimeout bounds the age of frames kept in the motion trackers.
	MotionTimeout time.Duration
	// TickInterval is the nominal tick period added to hold timers.
	TickInterval time.Duration
	// FireOnce fires a held pose once per hold instead of every HoldTime.
	FireOnce bool
	// Sensitivity divides every motion's minimum distance.
	Sensitivity float64

	EnabledHands   []hand.Side
	EnabledPoses   []string // empty enables every catalog pose
	EnabledMotions []string // empty enables every motion and detector gesture
}

// DefaultSettings returns the stock loop settings.
func DefaultSettings() Settings {
	return Settings{
		HoldTime:      300 * time.Millisecond,
		MotionTimeout: 500 * time.Millisecond,
		TickInterval:  16 * time.Millisecond,
		Sensitivity:   1,
		EnabledHands:  []hand.Side{hand.Left, hand.Right},
	}
}

// Validate reports settings the loop cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if s.HoldTime < 0 {
		errs = append(errs, errors.New("hold time must not be negative"))
	}
	if s.MotionTimeout <= 0 {
		errs = append(errs, errors.New("motion timeout must be positive"))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be positive"))
	}
	if s.Sensitivity <= 0 {
		errs = append(errs, errors.New("motion sensitivity must be positive"))
	}
	for _, side := range s.EnabledHands {
		if side != hand.Left && side != hand.Right {
			errs = append(errs, fmt.Errorf("unknown hand %q", side))
		}
	}
	return errors.Join(errs...)
}
