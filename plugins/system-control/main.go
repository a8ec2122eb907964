// Package main provides a system control plugin for macOS.
// It toggles mute and navigates to system controls, applications or URLs.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request is the action forwarded by the executor.
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

// Response is written back to the executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type handler func() error

// controls are the named NAVIGATE targets.
var controls = map[string]handler{
	"volume-up":        volumeUp,
	"volume-down":      volumeDown,
	"brightness-up":    keyCode(144),
	"brightness-down":  keyCode(145),
	"media-play-pause": keyCode(100),
	"media-next":       keyCode(101),
	"media-prev":       keyCode(98),
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var err error
	switch req.Action {
	case "MUTE_TOGGLE":
		err = volumeMute()
	case "NAVIGATE":
		err = navigate(req.Target)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

// navigate runs a named control, opens a URL, or activates an application.
func navigate(target string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}
	if h, ok := controls[target]; ok {
		return h()
	}
	if strings.Contains(target, "://") {
		return run("open", target)
	}
	return run("open", "-a", target)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	return run("osascript", "-e", script)
}

func volumeUp() error {
	return runAppleScript(`set volume output volume ((output volume of (get volume settings)) + 10)`)
}

func volumeDown() error {
	return runAppleScript(`set volume output volume ((output volume of (get volume settings)) - 10)`)
}

// volumeMute toggles the system mute state.
func volumeMute() error {
	return runAppleScript(`set volume output muted (not (output muted of (get volume settings)))`)
}

// keyCode presses a media or brightness key.
func keyCode(code int) handler {
	return func() error {
		return runAppleScript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
	}
}
