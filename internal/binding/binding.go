package binding

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// ErrInvalidBinding wraps every binding validation failure.
var ErrInvalidBinding = errors.New("invalid binding")

// Binding maps a gesture to an action. Hand and Context are optional
// filters: an empty Hand matches both hands and an empty Context matches
// every dispatch context.
type Binding struct {
	ID         string    `json:"id"`
	Gesture    string    `json:"gesture"`
	Hand       hand.Side `json:"hand,omitempty"`
	Action     Action    `json:"action"`
	Context    []string  `json:"context,omitempty"`
	CooldownMs int64     `json:"cooldownMs"`
}

// Cooldown returns the minimum time between two executions.
func (b Binding) Cooldown() time.Duration {
	return time.Duration(b.CooldownMs) * time.Millisecond
}

// Validate reports a binding that can never be dispatched correctly.
func (b Binding) Validate() error {
	var errs []error
	if b.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if b.Gesture == "" {
		errs = append(errs, errors.New("gesture is required"))
	}
	if b.Hand != "" && b.Hand != hand.Left && b.Hand != hand.Right {
		errs = append(errs, fmt.Errorf("unknown hand %q", b.Hand))
	}
	if b.CooldownMs < 0 {
		errs = append(errs, errors.New("cooldown must not be negative"))
	}
	if slices.Contains(b.Context, "") {
		errs = append(errs, errors.New("context scopes must not be empty"))
	}
	if err := b.Action.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %w", ErrInvalidBinding, b.ID, errors.Join(errs...))
}

// Matches reports whether ev triggers the binding in the dispatch context
// scope.
func (b Binding) Matches(ev gesture.Event, scope string) bool {
	if b.Gesture != ev.Gesture {
		return false
	}
	if b.Hand != "" && b.Hand != ev.Hand {
		return false
	}
	if len(b.Context) > 0 && !slices.Contains(b.Context, scope) {
		return false
	}
	return true
}
