package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestMotionDetector_Frames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	black2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black2.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	if moved, pct := md.Detect(&black); moved || pct != 0 {
		t.Errorf("baseline frame = (%v, %f), want (false, 0)", moved, pct)
	}
	if moved, pct := md.Detect(&black2); moved {
		t.Errorf("identical frames detected motion, changed = %f", pct)
	}
	moved, pct := md.Detect(&white)
	if !moved {
		t.Errorf("black to white should detect motion, changed = %f", pct)
	}
	if pct < 50 {
		t.Errorf("changed = %f, want > 50", pct)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	if !md.initialized {
		t.Fatal("detector should be initialized after first Detect")
	}

	md.Reset()
	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}
	if !md.prevGray.Empty() {
		t.Error("baseline should be empty after Reset")
	}

	// A closed detector starts over with a new baseline.
	md.Close()
	if moved, _ := md.Detect(&frame); moved {
		t.Error("first frame after Close should not detect motion")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	for _, tc := range []struct {
		set, want float64
	}{
		{5.0, 5.0},
		{0.5, 0.5},
		{0, 0.5},
		{-1, 0.5},
	} {
		md.SetThreshold(tc.set)
		if md.threshold != tc.want {
			t.Errorf("SetThreshold(%f): threshold = %f, want %f", tc.set, md.threshold, tc.want)
		}
	}
}

func TestGate(t *testing.T) {
	start := time.Unix(1000, 0)
	g := NewGate(0, 0, 0)

	if g.Active() || g.FPS() != IdleFPS {
		t.Fatalf("new gate: active=%v fps=%d, want idle at %d", g.Active(), g.FPS(), IdleFPS)
	}

	steps := []struct {
		name        string
		offset      time.Duration
		motion      bool
		wantChanged bool
		wantActive  bool
	}{
		{"still scene stays idle", 0, false, false, false},
		{"motion activates", 100 * time.Millisecond, true, true, true},
		{"more motion keeps active", 200 * time.Millisecond, true, false, true},
		{"brief stillness keeps active", time.Second, false, false, true},
		{"stillness at timeout keeps active", 200*time.Millisecond + IdleTimeout, false, false, true},
		{"stillness past timeout goes idle", 201*time.Millisecond + IdleTimeout, false, true, false},
		{"motion reactivates", 5 * time.Second, true, true, true},
	}
	for _, s := range steps {
		changed := g.Observe(start.Add(s.offset), s.motion)
		if changed != s.wantChanged || g.Active() != s.wantActive {
			t.Errorf("%s: changed=%v active=%v, want changed=%v active=%v", s.name, changed, g.Active(), s.wantChanged, s.wantActive)
		}
	}
	if g.FPS() != ActiveFPS {
		t.Errorf("FPS() = %d, want %d", g.FPS(), ActiveFPS)
	}
}
