package gesture

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidCatalog wraps every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid gesture catalog")

// Catalog is an immutable set of pose and motion definitions.
type Catalog struct {
	Poses   []PoseDefinition   `json:"poses"`
	Motions []MotionDefinition `json:"motions"`
}

// Validate checks every definition and returns all problems joined under
// ErrInvalidCatalog, or nil.
func (c Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	poses := make(map[string]bool, len(c.Poses))
	for i, p := range c.Poses {
		if p.ID == "" {
			add("pose %d: id is required", i)
			continue
		}
		if poses[p.ID] {
			add("pose %q: duplicate id", p.ID)
		}
		poses[p.ID] = true

		for f, req := range p.Fingers {
			if err := req.validate(); err != nil {
				add("pose %q: finger %d: %v", p.ID, f, err)
			}
		}
		if !p.Palm.valid() {
			add("pose %q: unknown palm direction %q", p.ID, p.Palm)
		}
		if p.Tolerance < 0 || p.Tolerance > 1 {
			add("pose %q: tolerance %g outside [0, 1]", p.ID, p.Tolerance)
		}
	}

	motions := make(map[string]bool, len(c.Motions))
	for i, m := range c.Motions {
		if m.ID == "" {
			add("motion %d: id is required", i)
			continue
		}
		if motions[m.ID] {
			add("motion %q: duplicate id", m.ID)
		}
		motions[m.ID] = true

		if slices.Contains(DetectorGestures, m.ID) {
			add("motion %q: id is reserved for a built-in detector", m.ID)
		}
		if m.StartPose != "" && !poses[m.StartPose] {
			add("motion %q: unknown start pose %q", m.ID, m.StartPose)
		}
		if m.MinDistance < 0 {
			add("motion %q: minDistance must not be negative", m.ID)
		}
		if m.MaxDuration <= 0 {
			add("motion %q: maxDuration must be positive", m.ID)
		}
		if m.Direction == nil {
			if m.DirectionTolerance != 0 {
				add("motion %q: directionTolerance set without a direction", m.ID)
			}
		} else {
			if m.Direction.Norm2() == 0 {
				add("motion %q: direction must be non-zero", m.ID)
			}
			if m.DirectionTolerance < 0 || m.DirectionTolerance > 1 {
				add("motion %q: directionTolerance %g outside [0, 1]", m.ID, m.DirectionTolerance)
			}
		}
		if m.MinVelocity != nil && *m.MinVelocity < 0 {
			add("motion %q: minVelocity must not be negative", m.ID)
		}
		if m.MaxVelocity != nil && *m.MaxVelocity < 0 {
			add("motion %q: maxVelocity must not be negative", m.ID)
		}
		if m.MinVelocity != nil && m.MaxVelocity != nil && *m.MinVelocity > *m.MaxVelocity {
			add("motion %q: minVelocity exceeds maxVelocity", m.ID)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
}

// Pose returns the pose with id.
func (c Catalog) Pose(id string) (PoseDefinition, bool) {
	for _, p := range c.Poses {
		if p.ID == id {
			return p, true
		}
	}
	return PoseDefinition{}, false
}

// Motion returns the motion with id.
func (c Catalog) Motion(id string) (MotionDefinition, bool) {
	for _, m := range c.Motions {
		if m.ID == id {
			return m, true
		}
	}
	return MotionDefinition{}, false
}

// Filter keeps only the listed poses and motions. An empty list keeps
// everything of that kind.
func (c Catalog) Filter(poses, motions []string) Catalog {
	out := Catalog{Poses: c.Poses, Motions: c.Motions}
	if len(poses) > 0 {
		out.Poses = nil
		for _, p := range c.Poses {
			if slices.Contains(poses, p.ID) {
				out.Poses = append(out.Poses, p)
			}
		}
	}
	if len(motions) > 0 {
		out.Motions = nil
		for _, m := range c.Motions {
			if slices.Contains(motions, m.ID) {
				out.Motions = append(out.Motions, m)
			}
		}
	}
	return out
}

// WithPoses returns a copy where each pose in extra replaces the pose with
// the same id or is appended.
func (c Catalog) WithPoses(extra ...PoseDefinition) Catalog {
	out := Catalog{
		Poses:   slices.Clone(c.Poses),
		Motions: c.Motions,
	}
	for _, p := range extra {
		i := slices.IndexFunc(out.Poses, func(q PoseDefinition) bool { return q.ID == p.ID })
		if i >= 0 {
			out.Poses[i] = p
			continue
		}
		out.Poses = append(out.Poses, p)
	}
	return out
}
