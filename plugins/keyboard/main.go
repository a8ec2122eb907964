// Package main provides a keyboard plugin for macOS.
// It turns gesture actions into key presses via AppleScript.
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

// KeystrokePayload is the CUSTOM action payload.
type KeystrokePayload struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// key is either a character typed with keystroke or a virtual key code.
type key struct {
	char      string
	code      int
	modifiers []string
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// Virtual key codes.
const (
	codeReturn = 36
	codeTab    = 48
	codeSpace  = 49
	codeEscape = 53
	codeLeft   = 123
	codeRight  = 124
	codeDown   = 125
	codeUp     = 126
)

var simpleKeys = map[string]key{
	"SELECT":      {code: codeSpace},
	"CONFIRM":     {code: codeReturn},
	"CANCEL":      {code: codeEscape},
	"BACK":        {char: "[", modifiers: []string{"cmd"}},
	"GRAB":        {char: "c", modifiers: []string{"cmd"}},
	"RELEASE":     {char: "v", modifiers: []string{"cmd"}},
	"MENU_TOGGLE": {code: codeTab, modifiers: []string{"cmd"}},
}

var directionalKeys = map[string]map[string]key{
	"SCROLL": {
		"up":    {code: codeUp},
		"down":  {code: codeDown},
		"left":  {code: codeLeft},
		"right": {code: codeRight},
	},
	"ZOOM": {
		"in":  {char: "=", modifiers: []string{"cmd"}},
		"out": {char: "-", modifiers: []string{"cmd"}},
	},
	"ROTATE": {
		"cw":  {char: "r", modifiers: []string{"cmd"}},
		"ccw": {char: "l", modifiers: []string{"cmd"}},
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	k, err := resolve(req)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
	if err := runAppleScript(buildScript(k)); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

// resolve maps a request to the key to press.
func resolve(req Request) (key, error) {
	if k, ok := simpleKeys[req.Action]; ok {
		return k, nil
	}
	if dirs, ok := directionalKeys[req.Action]; ok {
		k, ok := dirs[req.Direction]
		if !ok {
			return key{}, fmt.Errorf("unknown %s direction: %q", req.Action, req.Direction)
		}
		return k, nil
	}
	if req.Action == "CUSTOM" {
		var p KeystrokePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return key{}, fmt.Errorf("failed to parse payload: %w", err)
		}
		if p.Key == "" {
			return key{}, fmt.Errorf("key is required")
		}
		return key{char: p.Key, modifiers: p.Modifiers}, nil
	}
	return key{}, fmt.Errorf("unknown action: %s", req.Action)
}

// buildScript generates the AppleScript that presses k.
func buildScript(k key) string {
	press := fmt.Sprintf(`key code %d`, k.code)
	if k.char != "" {
		press = fmt.Sprintf(`keystroke "%s"`, k.char)
	}

	var appleModifiers []string
	for _, mod := range k.modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}
	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, press)
	}
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, press, strings.Join(appleModifiers, ", "))
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
