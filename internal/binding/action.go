// Package binding maps gesture events to actions and dispatches them.
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ActionType is the closed set of actions a binding can trigger.
type ActionType string

const (
	ActionSelect     ActionType = "SELECT"
	ActionConfirm    ActionType = "CONFIRM"
	ActionCancel     ActionType = "CANCEL"
	ActionBack       ActionType = "BACK"
	ActionScroll     ActionType = "SCROLL"
	ActionZoom       ActionType = "ZOOM"
	ActionRotate     ActionType = "ROTATE"
	ActionGrab       ActionType = "GRAB"
	ActionRelease    ActionType = "RELEASE"
	ActionMenuToggle ActionType = "MENU_TOGGLE"
	ActionMuteToggle ActionType = "MUTE_TOGGLE"
	ActionNavigate   ActionType = "NAVIGATE"
	ActionCustom     ActionType = "CUSTOM"
)

// ActionTypes lists every action type.
var ActionTypes = []ActionType{
	ActionSelect, ActionConfirm, ActionCancel, ActionBack,
	ActionScroll, ActionZoom, ActionRotate,
	ActionGrab, ActionRelease, ActionMenuToggle, ActionMuteToggle,
	ActionNavigate, ActionCustom,
}

// directions accepted by the directional action types.
var directions = map[ActionType][]string{
	ActionScroll: {"up", "down", "left", "right"},
	ActionZoom:   {"in", "out"},
	ActionRotate: {"cw", "ccw"},
}

// Action is a tagged variant: Direction is set for SCROLL, ZOOM and
// ROTATE, Target for NAVIGATE and Payload for CUSTOM.
type Action struct {
	Type      ActionType      `json:"type"`
	Direction string          `json:"direction,omitempty"`
	Target    string          `json:"target,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Simple returns an action without parameters.
func Simple(t ActionType) Action { return Action{Type: t} }

// Scroll returns a SCROLL action.
func Scroll(direction string) Action { return Action{Type: ActionScroll, Direction: direction} }

// Zoom returns a ZOOM action.
func Zoom(direction string) Action { return Action{Type: ActionZoom, Direction: direction} }

// Rotate returns a ROTATE action.
func Rotate(direction string) Action { return Action{Type: ActionRotate, Direction: direction} }

// Navigate returns a NAVIGATE action.
func Navigate(target string) Action { return Action{Type: ActionNavigate, Target: target} }

// Custom returns a CUSTOM action carrying payload.
func Custom(payload json.RawMessage) Action { return Action{Type: ActionCustom, Payload: payload} }

// Validate checks that the action carries exactly the field its type needs.
func (a Action) Validate() error {
	if !slices.Contains(ActionTypes, a.Type) {
		return fmt.Errorf("unknown action type %q", a.Type)
	}

	if allowed, ok := directions[a.Type]; ok {
		if !slices.Contains(allowed, a.Direction) {
			return fmt.Errorf("%s needs a direction in %v, got %q", a.Type, allowed, a.Direction)
		}
	} else if a.Direction != "" {
		return fmt.Errorf("%s takes no direction", a.Type)
	}

	if a.Type == ActionNavigate {
		if a.Target == "" {
			return errors.New("NAVIGATE needs a target")
		}
	} else if a.Target != "" {
		return fmt.Errorf("%s takes no target", a.Type)
	}

	if a.Type == ActionCustom {
		if len(a.Payload) == 0 || !json.Valid(a.Payload) {
			return errors.New("CUSTOM needs a JSON payload")
		}
	} else if len(a.Payload) > 0 {
		return fmt.Errorf("%s takes no payload", a.Type)
	}
	return nil
}

func (a Action) String() string {
	switch {
	case a.Direction != "":
		return fmt.Sprintf("%s(%s)", a.Type, a.Direction)
	case a.Target != "":
		return fmt.Sprintf("%s(%s)", a.Type, a.Target)
	}
	return string(a.Type)
}
