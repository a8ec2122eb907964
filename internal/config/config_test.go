package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/plugin"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.True(t, cfg.Recognition.Enabled)
	assert.Equal(t, 300*time.Millisecond, cfg.Recognition.PoseHoldTime)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Plugins.Timeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
recognition:
  enabled: false
  pose_tolerance: 0.3
  pose_hold_time: 450ms
  fire_once: true
  enabled_hands: [right]
  enabled_motions: [swipe_left, rotate_cw]
catalog:
  path: /etc/mudra/gestures.yaml
  watch: true
server:
  addr: 127.0.0.1:9000
plugins:
  routes:
    ZOOM: system-control
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Recognition.Enabled)
	assert.Equal(t, 0.3, cfg.Recognition.PoseTolerance)
	assert.Equal(t, 450*time.Millisecond, cfg.Recognition.PoseHoldTime)
	assert.True(t, cfg.Recognition.FireOnce)
	assert.Equal(t, []string{"right"}, cfg.Recognition.EnabledHands)
	assert.Equal(t, []string{"swipe_left", "rotate_cw"}, cfg.Recognition.EnabledMotions)
	assert.Equal(t, "/etc/mudra/gestures.yaml", cfg.Catalog.Path)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Recognition.MotionTimeout)
	assert.Equal(t, 0.5, cfg.Recognition.SmoothingFactor)

	ac := cfg.Plugins.ActionConfig()
	assert.Equal(t, plugin.SystemControlPlugin, ac.Routes[binding.ActionZoom])
	assert.Equal(t, 5.0, ac.RatePerSecond)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
recognition:
  pose_hold_time: 450ms
  motion_sensitivity: 2
server:
  addr: 127.0.0.1:9000
`)
	t.Setenv("MUDRA_RECOGNITION_POSE_HOLD_TIME", "1s")
	t.Setenv("MUDRA_RECOGNITION_SMOOTHING_FACTOR", "0.8")
	t.Setenv("MUDRA_SERVER_ADDR", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Recognition.PoseHoldTime)
	assert.Equal(t, 0.8, cfg.Recognition.SmoothingFactor)
	assert.Equal(t, 2.0, cfg.Recognition.MotionSensitivity)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "recognition: [", "failed to load config file"},
		{"smoothing out of range", "recognition:\n  smoothing_factor: 1.5\n", "smoothing_factor"},
		{"zero sensitivity", "recognition:\n  motion_sensitivity: 0\n", "motion_sensitivity"},
		{"negative hold", "recognition:\n  pose_hold_time: -1s\n", "pose_hold_time"},
		{"unknown hand", "recognition:\n  enabled_hands: [middle]\n", "enabled_hands"},
		{"unknown route", "plugins:\n  routes:\n    TELEPORT: keyboard\n", "TELEPORT"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestRecognitionConfig_Settings(t *testing.T) {
	r := Default().Recognition
	s, err := r.Settings()
	require.NoError(t, err)
	assert.Equal(t, []hand.Side{hand.Left, hand.Right}, s.EnabledHands)
	assert.Equal(t, r.PoseHoldTime, s.HoldTime)

	r.EnabledHands = []string{"right", "right"}
	r.EnabledPoses = []string{"fist"}
	r.FireOnce = true
	s, err = r.Settings()
	require.NoError(t, err)
	assert.Equal(t, []hand.Side{hand.Right}, s.EnabledHands)
	assert.Equal(t, []string{"fist"}, s.EnabledPoses)
	assert.True(t, s.FireOnce)

	r.EnabledHands = []string{"both"}
	_, err = r.Settings()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "recognition.pose_hold_time", envKey("MUDRA_RECOGNITION_POSE_HOLD_TIME"))
	assert.Equal(t, "server.addr", envKey("MUDRA_SERVER_ADDR"))
	assert.Equal(t, "debug", envKey("MUDRA_DEBUG"))
}
