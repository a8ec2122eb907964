// Package config loads the mudra configuration from a YAML file and
// MUDRA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/plugin"
)

// Config is the complete configuration.
type Config struct {
	Recognition RecognitionConfig `koanf:"recognition"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Server      ServerConfig      `koanf:"server"`
	Store       StoreConfig       `koanf:"store"`
	Plugins     PluginsConfig     `koanf:"plugins"`
	Camera      CameraConfig      `koanf:"camera"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// RecognitionConfig tunes the recognition loop and the tracking source.
type RecognitionConfig struct {
	Enabled           bool          `koanf:"enabled"`
	PoseTolerance     float64       `koanf:"pose_tolerance"`
	MotionSensitivity float64       `koanf:"motion_sensitivity"`
	PoseHoldTime      time.Duration `koanf:"pose_hold_time"`
	MotionTimeout     time.Duration `koanf:"motion_timeout"`
	SmoothingFactor   float64       `koanf:"smoothing_factor"`
	NoiseThreshold    float64       `koanf:"noise_threshold"`
	TickInterval      time.Duration `koanf:"tick_interval"`
	FireOnce          bool          `koanf:"fire_once"`
	EnabledHands      []string      `koanf:"enabled_hands"` // empty enables both
	EnabledPoses      []string      `koanf:"enabled_poses"`
	EnabledMotions    []string      `koanf:"enabled_motions"`
}

// CatalogConfig locates the gesture catalog file.
type CatalogConfig struct {
	Path  string `koanf:"path"` // empty uses the built-in catalog
	Watch bool   `koanf:"watch"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `koanf:"addr"`
	StaticDir string `koanf:"static_dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// PluginsConfig configures plugin discovery and the action executor.
type PluginsConfig struct {
	Dir           string            `koanf:"dir"`
	Timeout       time.Duration     `koanf:"timeout"`
	RatePerSecond float64           `koanf:"rate_per_second"`
	Burst         int               `koanf:"burst"`
	QueueSize     int               `koanf:"queue_size"`
	Routes        map[string]string `koanf:"routes"` // action type -> plugin name
}

// CameraConfig configures the capture device and its motion gate.
type CameraConfig struct {
	DeviceID        int     `koanf:"device_id"`
	MotionThreshold float64 `koanf:"motion_threshold"` // percent of changed pixels
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DataDir returns ~/.mudra, falling back to ./.mudra without a home
// directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// Default returns the stock configuration.
func Default() Config {
	s := engine.DefaultSettings()
	dir := DataDir()
	return Config{
		Recognition: RecognitionConfig{
			Enabled:           true,
			PoseTolerance:     0.25,
			MotionSensitivity: s.Sensitivity,
			PoseHoldTime:      s.HoldTime,
			MotionTimeout:     s.MotionTimeout,
			SmoothingFactor:   0.5,
			NoiseThreshold:    0.002,
			TickInterval:      s.TickInterval,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "mudra.db"),
		},
		Plugins: PluginsConfig{
			Dir:           filepath.Join(dir, "plugins"),
			Timeout:       5 * time.Second,
			RatePerSecond: 5,
			Burst:         3,
			QueueSize:     16,
		},
		Camera: CameraConfig{
			MotionThreshold: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	r := c.Recognition

	if r.PoseTolerance < 0 || r.PoseTolerance >= 1 {
		errs = append(errs, fmt.Errorf("recognition.pose_tolerance must be in [0,1), got %g", r.PoseTolerance))
	}
	if r.MotionSensitivity <= 0 {
		errs = append(errs, fmt.Errorf("recognition.motion_sensitivity must be positive, got %g", r.MotionSensitivity))
	}
	if r.SmoothingFactor < 0 || r.SmoothingFactor > 1 {
		errs = append(errs, fmt.Errorf("recognition.smoothing_factor must be in [0,1], got %g", r.SmoothingFactor))
	}
	if r.NoiseThreshold < 0 {
		errs = append(errs, fmt.Errorf("recognition.noise_threshold must not be negative, got %g", r.NoiseThreshold))
	}
	for name, d := range map[string]time.Duration{
		"recognition.pose_hold_time": r.PoseHoldTime,
		"recognition.motion_timeout": r.MotionTimeout,
		"recognition.tick_interval":  r.TickInterval,
		"plugins.timeout":            c.Plugins.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	for _, h := range r.EnabledHands {
		if _, err := hand.ParseSide(h); err != nil {
			errs = append(errs, fmt.Errorf("recognition.enabled_hands: %w", err))
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Plugins.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("plugins.rate_per_second must not be negative, got %g", c.Plugins.RatePerSecond))
	}
	for t := range c.Plugins.Routes {
		if !slices.Contains(binding.ActionTypes, binding.ActionType(t)) {
			errs = append(errs, fmt.Errorf("plugins.routes: unknown action type %q", t))
		}
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("camera.motion_threshold must be a percentage, got %g", c.Camera.MotionThreshold))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Settings converts the recognition section into engine settings.
func (r RecognitionConfig) Settings() (engine.Settings, error) {
	hands := make([]hand.Side, 0, len(r.EnabledHands))
	for _, h := range r.EnabledHands {
		side, err := hand.ParseSide(h)
		if err != nil {
			return engine.Settings{}, err
		}
		if !slices.Contains(hands, side) {
			hands = append(hands, side)
		}
	}
	if len(hands) == 0 {
		hands = slices.Clone(hand.Sides)
	}
	s := engine.Settings{
		HoldTime:       r.PoseHoldTime,
		MotionTimeout:  r.MotionTimeout,
		TickInterval:   r.TickInterval,
		FireOnce:       r.FireOnce,
		Sensitivity:    r.MotionSensitivity,
		EnabledHands:   hands,
		EnabledPoses:   r.EnabledPoses,
		EnabledMotions: r.EnabledMotions,
	}
	return s, s.Validate()
}

// ActionConfig converts the plugins section into executor settings.
func (p PluginsConfig) ActionConfig() plugin.ActionConfig {
	routes := make(map[binding.ActionType]string, len(p.Routes))
	for t, name := range p.Routes {
		routes[binding.ActionType(t)] = name
	}
	return plugin.ActionConfig{
		Routes:        routes,
		RatePerSecond: p.RatePerSecond,
		Burst:         p.Burst,
		QueueSize:     p.QueueSize,
	}
}
