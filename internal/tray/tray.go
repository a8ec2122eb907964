// Package tray provides the menu bar interface: a recognition toggle, the
// current pose of each hand and the last fired gesture.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// Toggler is the recognition switch the tray controls.
type Toggler interface {
	Enabled() bool
	SetEnabled(on bool)
}

// Tray represents the menu bar application.
type Tray struct {
	toggler    Toggler
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()

	mu          sync.RWMutex
	lastGesture string
	poses       map[hand.Side]string

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuPoses       map[hand.Side]*systray.MenuItem
}

// New creates a Tray controlling toggler.
func New(toggler Toggler) *Tray {
	return &Tray{
		toggler:   toggler,
		poses:     make(map[hand.Side]string),
		menuPoses: make(map[hand.Side]*systray.MenuItem),
	}
}

// OnToggle sets the callback run after the tray flips recognition on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the menu bar application and blocks until Quit.
// It must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the menu bar application.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Gesture Recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.toggler.Enabled()), "Toggle gesture recognition")
	systray.AddSeparator()

	for _, side := range hand.Sides {
		item := systray.AddMenuItem(poseTitle(side, t.poses[side]), "Current pose")
		item.Disable()
		t.menuPoses[side] = item
	}
	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.lastGesture), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.Toggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// Toggle flips recognition and returns the new state.
func (t *Tray) Toggle() bool {
	enabled := !t.toggler.Enabled()
	t.toggler.SetEnabled(enabled)

	t.mu.RLock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.RUnlock()

	if callback != nil {
		callback(enabled)
	}
	return enabled
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// HandleTick shows the last event of the tick, if any.
func (t *Tray) HandleTick(_ time.Time, events []gesture.Event) {
	if len(events) == 0 {
		return
	}
	t.SetLastGesture(gestureLabel(events[len(events)-1]))
}

// OnPoseChange updates the pose line of side. It matches engine.PoseObserver.
func (t *Tray) OnPoseChange(side hand.Side, pose string, _ float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.poses[side] = pose
	if item := t.menuPoses[side]; item != nil {
		item.SetTitle(poseTitle(side, pose))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastGesture = label
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(label))
	}
}

// LastGesture returns the label shown for the last gesture.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastGesture
}

// Pose returns the pose shown for side.
func (t *Tray) Pose(side hand.Side) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.poses[side]
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func poseTitle(side hand.Side, pose string) string {
	if pose == "" {
		pose = "none"
	}
	return fmt.Sprintf("%s: %s", sideName(side), pose)
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func gestureLabel(ev gesture.Event) string {
	return fmt.Sprintf("%s (%s, %.0f%%)", ev.Gesture, ev.Hand, ev.Confidence*100)
}

func sideName(side hand.Side) string {
	if side == hand.Left {
		return "Left"
	}
	return "Right"
}
