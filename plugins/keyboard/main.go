// Package main provides a keyboard plugin for macOS.
// It sends keyboard shortcuts and keystrokes via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	TrackingID uint64          `json:"tracking_id"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Keystroke is the key configured for an action binding.
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// defaultKeys is used when a binding does not configure a key. Swipes move
// the way slides follow the hand.
var defaultKeys = map[string]Keystroke{
	"swipe-left":  {Key: "right"},
	"swipe-right": {Key: "left"},
	"swipe-up":    {Key: "up"},
	"swipe-down":  {Key: "down"},
	"zoom-in":     {Key: "=", Modifiers: []string{"command"}},
	"zoom-out":    {Key: "-", Modifiers: []string{"command"}},
	"menu":        {Key: "escape"},
	"wave-right":  {Key: "space"},
	"wave-left":   {Key: "space"},
}

// keyCodes maps named keys that keystroke cannot type to macOS key codes.
var keyCodes = map[string]int{
	"return": 36,
	"tab":    48,
	"space":  49,
	"escape": 53,
	"left":   123,
	"right":  124,
	"down":   125,
	"up":     126,
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

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "keystroke", "shortcut":
		ks, err := resolveKeystroke(req)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
		if err := runAppleScript(buildKeystrokeScript(ks.Key, ks.Modifiers)); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

// resolveKeystroke returns the configured key, falling back to the default
// key of the recognized gesture.
func resolveKeystroke(req Request) (Keystroke, error) {
	var ks Keystroke
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &ks); err != nil {
			return Keystroke{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if ks.Key == "" {
		def, ok := defaultKeys[req.Gesture]
		if !ok {
			return Keystroke{}, fmt.Errorf("key is required for gesture %q", req.Gesture)
		}
		ks = def
	}
	return ks, nil
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	press := fmt.Sprintf(`keystroke "%s"`, key)
	if code, ok := keyCodes[strings.ToLower(key)]; ok {
		press = fmt.Sprintf("key code %d", code)
	}

	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to %s`, press)
	}

	modifierList := strings.Join(appleModifiers, ", ")
	return fmt.Sprintf(`tell application "System Events" to %s using {%s}`, press, modifierList)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
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
