// Package catalog reads pose and motion catalogs from YAML files and
// watches them for changes.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

// File is the on-disk catalog layout.
//
//	poses:
//	  - id: point
//	    fingers: {index: extended, middle: [0.6, 1], ring: curled}
//	    palm: forward
//	    tolerance: 0.25
//	motions:
//	  - id: swipe_right
//	    min_distance: 0.15
//	    max_duration: 500ms
//	    direction: [1, 0, 0]
//	    direction_tolerance: 0.3
//
// Fingers that are not listed accept any state.
type File struct {
	Poses   []Pose   `yaml:"poses"`
	Motions []Motion `yaml:"motions"`
}

// Pose is a pose entry in a catalog file.
type Pose struct {
	ID        string                 `yaml:"id"`
	Fingers   map[string]Requirement `yaml:"fingers,omitempty"`
	Palm      string                 `yaml:"palm,omitempty"`
	Tolerance *float64               `yaml:"tolerance,omitempty"`
}

// Motion is a motion entry in a catalog file.
type Motion struct {
	ID                 string        `yaml:"id"`
	StartPose          string        `yaml:"start_pose,omitempty"`
	MinDistance        float64       `yaml:"min_distance"`
	MaxDuration        time.Duration `yaml:"max_duration"`
	Direction          []float64     `yaml:"direction,omitempty"`
	DirectionTolerance float64       `yaml:"direction_tolerance,omitempty"`
	MinVelocity        *float64      `yaml:"min_velocity,omitempty"`
	MaxVelocity        *float64      `yaml:"max_velocity,omitempty"`
}

// Requirement is a finger requirement written either as a keyword
// (any, none, extended, curled) or as a [min, max] curl range.
type Requirement struct {
	gesture.Requirement
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "any", "none":
			r.Requirement = gesture.Any()
		case "extended":
			r.Requirement = gesture.Extended()
		case "curled":
			r.Requirement = gesture.Curled()
		default:
			return fmt.Errorf("line %d: unknown finger requirement %q", node.Line, node.Value)
		}
		return nil
	case yaml.SequenceNode:
		var bounds []float64
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return fmt.Errorf("line %d: curl range needs [min, max], got %d values", node.Line, len(bounds))
		}
		r.Requirement = gesture.CurlRange(bounds[0], bounds[1])
		return nil
	}
	return fmt.Errorf("line %d: finger requirement must be a keyword or [min, max]", node.Line)
}

// Load decodes a catalog, converts it and validates it. Poses without a
// tolerance get defaultTolerance. Every failure wraps
// gesture.ErrInvalidCatalog.
func Load(r io.Reader, defaultTolerance float64) (gesture.Catalog, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return gesture.Catalog{}, fmt.Errorf("%w: failed to parse YAML: %v", gesture.ErrInvalidCatalog, err)
	}

	c, err := f.Catalog(defaultTolerance)
	if err != nil {
		return gesture.Catalog{}, err
	}
	if err := c.Validate(); err != nil {
		return gesture.Catalog{}, err
	}
	return c, nil
}

// LoadFile reads and loads the catalog at path.
func LoadFile(path string, defaultTolerance float64) (gesture.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gesture.Catalog{}, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Load(bytes.NewReader(data), defaultTolerance)
	if err != nil {
		return gesture.Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path, or returns the built-in catalog when path is
// empty.
func LoadOrDefault(path string, defaultTolerance float64) (gesture.Catalog, error) {
	if path == "" {
		return gesture.DefaultCatalog(), nil
	}
	return LoadFile(path, defaultTolerance)
}

// Catalog converts the file entries into definitions. It rejects entries
// the definitions cannot represent; range checks are left to
// gesture.Catalog.Validate.
func (f File) Catalog(defaultTolerance float64) (gesture.Catalog, error) {
	var (
		c    gesture.Catalog
		errs []error
	)

	for i, p := range f.Poses {
		def := gesture.PoseDefinition{
			ID:        p.ID,
			Palm:      gesture.PalmDirection(p.Palm),
			Tolerance: defaultTolerance,
		}
		if def.Palm == "" {
			def.Palm = gesture.PalmAny
		}
		if p.Tolerance != nil {
			def.Tolerance = *p.Tolerance
		}
		for j := range def.Fingers {
			def.Fingers[j] = gesture.Any()
		}
		for name, req := range p.Fingers {
			finger, err := hand.ParseFinger(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("pose %d (%s): %w", i, p.ID, err))
				continue
			}
			def.Fingers[finger] = req.Requirement
		}
		c.Poses = append(c.Poses, def)
	}

	for i, m := range f.Motions {
		def := gesture.MotionDefinition{
			ID:                 m.ID,
			StartPose:          m.StartPose,
			MinDistance:        m.MinDistance,
			MaxDuration:        m.MaxDuration,
			DirectionTolerance: m.DirectionTolerance,
			MinVelocity:        m.MinVelocity,
			MaxVelocity:        m.MaxVelocity,
		}
		if m.Direction != nil {
			if len(m.Direction) != 3 {
				errs = append(errs, fmt.Errorf("motion %d (%s): direction needs [x, y, z], got %d values", i, m.ID, len(m.Direction)))
				continue
			}
			dir := r3.Vector{X: m.Direction[0], Y: m.Direction[1], Z: m.Direction[2]}
			if dir.Norm2() > 0 {
				dir = dir.Normalize()
			}
			def.Direction = &dir
		}
		c.Motions = append(c.Motions, def)
	}

	if len(errs) > 0 {
		return gesture.Catalog{}, fmt.Errorf("%w: %w", gesture.ErrInvalidCatalog, errors.Join(errs...))
	}
	return c, nil
}

// FromCatalog converts definitions back into the file layout.
func FromCatalog(c gesture.Catalog) File {
	var f File
	for _, p := range c.Poses {
		tolerance := p.Tolerance
		entry := Pose{ID: p.ID, Palm: string(p.Palm), Tolerance: &tolerance, Fingers: map[string]Requirement{}}
		if p.Palm == gesture.PalmAny {
			entry.Palm = ""
		}
		for i, req := range p.Fingers {
			if req.Kind == gesture.RequireNone || req.Kind == "" {
				continue
			}
			entry.Fingers[hand.Finger(i).String()] = Requirement{req}
		}
		f.Poses = append(f.Poses, entry)
	}
	for _, m := range c.Motions {
		entry := Motion{
			ID:                 m.ID,
			StartPose:          m.StartPose,
			MinDistance:        m.MinDistance,
			MaxDuration:        m.MaxDuration,
			DirectionTolerance: m.DirectionTolerance,
			MinVelocity:        m.MinVelocity,
			MaxVelocity:        m.MaxVelocity,
		}
		if m.Direction != nil {
			entry.Direction = []float64{m.Direction.X, m.Direction.Y, m.Direction.Z}
		}
		f.Motions = append(f.Motions, entry)
	}
	return f
}

// MarshalYAML implements yaml.Marshaler.
func (r Requirement) MarshalYAML() (any, error) {
	if r.Kind == gesture.RequireCurlRange {
		node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range []float64{r.Min, r.Max} {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(v, 'g', -1, 64)})
		}
		return node, nil
	}
	return string(r.Kind), nil
}

// Encode writes c in the file layout.
func Encode(w io.Writer, c gesture.Catalog) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(FromCatalog(c)); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return encoder.Close()
}
