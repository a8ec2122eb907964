package tray

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

type switchStub struct {
	mu sync.Mutex
	on bool
}

func (s *switchStub) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *switchStub) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = on
}

func TestTray_Toggle(t *testing.T) {
	sw := &switchStub{on: true}
	tr := New(sw)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	assert.False(t, tr.Toggle())
	assert.False(t, sw.Enabled())
	assert.True(t, tr.Toggle())
	assert.True(t, sw.Enabled())
	assert.Equal(t, []bool{false, true}, got)
}

func TestTray_HandleTick(t *testing.T) {
	tr := New(&switchStub{})

	tr.HandleTick(time.Now(), nil)
	assert.Empty(t, tr.LastGesture())

	tr.HandleTick(time.Now(), []gesture.Event{
		{Gesture: "fist", Hand: hand.Left, Confidence: 0.9},
		{Gesture: "swipe_up", Hand: hand.Right, Confidence: 0.75},
	})
	assert.Equal(t, "swipe_up (right, 75%)", tr.LastGesture())

	tr.HandleTick(time.Now(), nil)
	assert.Equal(t, "swipe_up (right, 75%)", tr.LastGesture())
}

func TestTray_OnPoseChange(t *testing.T) {
	tr := New(&switchStub{})

	tr.OnPoseChange(hand.Left, "open_palm", 0.8)
	assert.Equal(t, "open_palm", tr.Pose(hand.Left))
	assert.Empty(t, tr.Pose(hand.Right))

	tr.OnPoseChange(hand.Left, "", 0)
	assert.Empty(t, tr.Pose(hand.Left))
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "● Enabled", toggleTitle(true))
	assert.Equal(t, "○ Disabled", toggleTitle(false))
	assert.Equal(t, "Left: none", poseTitle(hand.Left, ""))
	assert.Equal(t, "Right: fist", poseTitle(hand.Right, "fist"))
	assert.Equal(t, "Last: none", lastTitle(""))
	assert.Equal(t, "Last: pinch_in (left, 50%)", lastTitle(gestureLabel(gesture.Event{Gesture: "pinch_in", Hand: hand.Left, Confidence: 0.5})))
}
