package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

func leftHand() detector.HandLandmarks {
	lm := detector.OpenPalmLandmarks()
	lm.Handedness = "Left"
	return lm
}

func TestLandmarkSource_UpdateAndSample(t *testing.T) {
	s := NewLandmarkSource(NewMockCamera(nil, false), detector.NewMockDetector(), SourceConfig{StaleAfter: 100 * time.Millisecond}, nil)
	now := time.Unix(1000, 0)

	s.Update(now, []detector.HandLandmarks{detector.ThumbsUpLandmarks(), leftHand()})
	got := s.Sample(now)
	require.Len(t, got, 2)
	assert.True(t, got[hand.Right].TrackingValid)
	assert.Equal(t, hand.Right, got[hand.Right].Hand)
	assert.Equal(t, hand.Left, got[hand.Left].Hand)

	// A hand missing from the next detection is untracked.
	s.Update(now.Add(10*time.Millisecond), []detector.HandLandmarks{leftHand()})
	got = s.Sample(now.Add(10 * time.Millisecond))
	assert.NotContains(t, got, hand.Right)
	assert.Contains(t, got, hand.Left)

	// Stale hands are dropped.
	assert.Empty(t, s.Sample(now.Add(200*time.Millisecond)))
}

func TestLandmarkSource_UpdateSkipsUnknownAndDuplicates(t *testing.T) {
	s := NewLandmarkSource(NewMockCamera(nil, false), detector.NewMockDetector(), SourceConfig{}, nil)
	now := time.Unix(1000, 0)

	unknown := detector.OpenPalmLandmarks()
	unknown.Handedness = ""
	s.Update(now, []detector.HandLandmarks{unknown, detector.ThumbsUpLandmarks(), detector.OpenPalmLandmarks()})

	got := s.Sample(now)
	require.Len(t, got, 1)
	want := hand.Build(hand.Right, detector.ThumbsUpLandmarks())
	assert.Equal(t, want, got[hand.Right])
}

func TestLandmarkSource_Hold(t *testing.T) {
	s := NewLandmarkSource(NewMockCamera(nil, false), detector.NewMockDetector(), SourceConfig{StaleAfter: 100 * time.Millisecond}, nil)
	now := time.Unix(1000, 0)

	s.Update(now, []detector.HandLandmarks{detector.ThumbsUpLandmarks()})
	s.Hold(now.Add(90 * time.Millisecond))

	assert.Contains(t, s.Sample(now.Add(150*time.Millisecond)), hand.Right)
}

func TestLandmarkSource_ProcessFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	cam := NewMockCamera([]gocv.Mat{black, white, white, white}, false)
	defer cam.Release()
	require.NoError(t, cam.Open())

	det := detector.NewMockDetector()
	det.SetHands(detector.ThumbsUpLandmarks())
	s := NewLandmarkSource(cam, det, SourceConfig{}, nil)
	defer s.motion.Close()

	now := time.Unix(1000, 0)

	// Baseline frame: idle, nothing detected.
	assert.False(t, s.ProcessFrame(now))
	assert.Equal(t, 0, det.Calls())
	assert.Empty(t, s.Sample(now))

	// Motion switches the gate and runs detection.
	now = now.Add(200 * time.Millisecond)
	assert.True(t, s.ProcessFrame(now))
	assert.Equal(t, 1, det.Calls())
	assert.Contains(t, s.Sample(now), hand.Right)

	// Still but within the idle timeout: detection keeps running.
	now = now.Add(100 * time.Millisecond)
	assert.False(t, s.ProcessFrame(now))
	assert.Equal(t, 2, det.Calls())

	// Still past the timeout: idle again, hands held without detection.
	now = now.Add(IdleTimeout + time.Second)
	assert.True(t, s.ProcessFrame(now))
	assert.Equal(t, 2, det.Calls())
	assert.Contains(t, s.Sample(now), hand.Right)

	// Out of frames: nothing changes.
	assert.False(t, s.ProcessFrame(now))
}

func TestLandmarkSource_ProcessFrameDetectorError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	cam := NewMockCamera([]gocv.Mat{black, white}, false)
	defer cam.Release()
	require.NoError(t, cam.Open())

	det := detector.NewMockDetector()
	det.SetError(errors.New("service unavailable"))
	s := NewLandmarkSource(cam, det, SourceConfig{}, nil)
	defer s.motion.Close()

	now := time.Unix(1000, 0)
	s.ProcessFrame(now)
	s.ProcessFrame(now.Add(100 * time.Millisecond))

	assert.Equal(t, 1, det.Calls())
	assert.Empty(t, s.Sample(now.Add(100*time.Millisecond)))
}
