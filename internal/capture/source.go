package capture

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

// DefaultStaleAfter is how long a detected hand stays tracked without a
// fresh frame.
const DefaultStaleAfter = 500 * time.Millisecond

// SourceConfig tunes a LandmarkSource.
type SourceConfig struct {
	MotionThreshold float64 // percent of changed pixels
	SmoothingFactor float64
	NoiseThreshold  float64
	StaleAfter      time.Duration
	IdleFPS         int
	ActiveFPS       int
	IdleTimeout     time.Duration
}

type tracked struct {
	state hand.State
	seen  time.Time
}

// LandmarkSource is the camera tracking source: each frame passes the
// motion gate, then the hand detector, then smoothing and the hand state
// builder. The engine samples the latest result on its own clock.
type LandmarkSource struct {
	camera   Camera
	detector detector.Detector
	motion   *MotionDetector
	gate     *Gate
	smoother *hand.Smoother
	stale    time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	latest map[hand.Side]tracked
}

// NewLandmarkSource creates a source reading from camera and detecting with det.
func NewLandmarkSource(camera Camera, det detector.Detector, cfg SourceConfig, logger *zap.Logger) *LandmarkSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = 1.0
	}
	return &LandmarkSource{
		camera:   camera,
		detector: det,
		motion:   NewMotionDetector(cfg.MotionThreshold),
		gate:     NewGate(cfg.IdleFPS, cfg.ActiveFPS, cfg.IdleTimeout),
		smoother: hand.NewSmoother(cfg.SmoothingFactor, cfg.NoiseThreshold),
		stale:    cfg.StaleAfter,
		logger:   logger.Named("capture"),
		latest:   make(map[hand.Side]tracked),
	}
}

// Sample returns the hands seen within the stale window before now.
func (s *LandmarkSource) Sample(now time.Time) map[hand.Side]hand.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[hand.Side]hand.State, len(s.latest))
	for side, t := range s.latest {
		if now.Sub(t.seen) > s.stale {
			continue
		}
		out[side] = t.state
	}
	return out
}

// Update replaces the tracked hands with one detection result. Hands not
// in the result become untracked and lose their smoothing history.
func (s *LandmarkSource) Update(now time.Time, hands []detector.HandLandmarks) {
	seen := make(map[hand.Side]tracked, len(hands))
	for _, lm := range hands {
		side, ok := hand.SideOf(lm.Handedness)
		if !ok {
			s.logger.Debug("skipping hand with unknown handedness", zap.String("handedness", lm.Handedness))
			continue
		}
		if _, dup := seen[side]; dup {
			continue
		}
		seen[side] = tracked{state: hand.Build(side, s.smoother.Apply(side, lm)), seen: now}
	}

	for _, side := range hand.Sides {
		if _, ok := seen[side]; !ok {
			s.smoother.Reset(side)
		}
	}

	s.mu.Lock()
	s.latest = seen
	s.mu.Unlock()
}

// Hold keeps the current hands tracked as of now. It is used while the
// scene is still and detection is skipped.
func (s *LandmarkSource) Hold(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := maps.Clone(s.latest)
	for side, t := range held {
		t.seen = now
		held[side] = t
	}
	s.latest = held
}

// Run opens the camera and processes frames until ctx is done.
func (s *LandmarkSource) Run(ctx context.Context) error {
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := s.camera.Close(); err != nil {
			s.logger.Warn("closing camera", zap.Error(err))
		}
		s.motion.Close()
	}()

	s.camera.SetFPS(s.gate.FPS())
	ticker := time.NewTicker(time.Second / time.Duration(s.gate.FPS()))
	defer ticker.Stop()

	s.logger.Info("tracking started", zap.Int("fps", s.gate.FPS()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracking stopped")
			return nil
		case now := <-ticker.C:
			if s.ProcessFrame(now) {
				fps := s.gate.FPS()
				s.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				s.logger.Debug("capture rate changed", zap.Bool("active", s.gate.Active()), zap.Int("fps", fps))
			}
		}
	}
}

// ProcessFrame reads and handles one frame. It reports whether the capture
// rate should change.
func (s *LandmarkSource) ProcessFrame(now time.Time) bool {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		s.logger.Debug("reading frame", zap.Error(err))
		return false
	}
	defer frame.Close()

	moved, changed := s.motion.Detect(frame)
	rateChanged := s.gate.Observe(now, moved)
	if !s.gate.Active() {
		s.Hold(now)
		return rateChanged
	}

	data, err := encodeJPEG(frame)
	if err != nil {
		s.logger.Warn("encoding frame", zap.Error(err))
		return rateChanged
	}
	hands, err := s.detector.Detect(data)
	if err != nil {
		s.logger.Warn("detecting hands", zap.Error(err))
		return rateChanged
	}

	s.logger.Debug("frame processed", zap.Float64("changed_pct", changed), zap.Int("hands", len(hands)))
	s.Update(now, hands)
	return rateChanged
}

func encodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
