// Package plugin discovers action plugins and runs them as subprocesses
// that exchange JSON over stdin and stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and the action types it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to a plugin's stdin. Action is the binding's action
// type; Direction, Target and Payload carry its parameters.
type Request struct {
	Action     string          `json:"action"`
	Direction  string          `json:"direction,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Gesture    string          `json:"gesture"`
	Hand       string          `json:"hand,omitempty"`
	Confidence float64         `json:"confidence"`
	Binding    string          `json:"binding,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
