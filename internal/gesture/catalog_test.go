package gesture

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
)

func TestCatalog_DefaultIsValid(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
}

func TestCatalog_Validate(t *testing.T) {
	valid := func() Catalog { return DefaultCatalog() }
	zero := r3.Vector{}

	tests := []struct {
		name   string
		mutate func(c *Catalog)
	}{
		{"empty pose id", func(c *Catalog) { c.Poses[0].ID = "" }},
		{"duplicate pose", func(c *Catalog) { c.Poses[1].ID = c.Poses[0].ID }},
		{"bad curl range", func(c *Catalog) { c.Poses[0].Fingers[2] = CurlRange(0.8, 0.2) }},
		{"curl range above one", func(c *Catalog) { c.Poses[0].Fingers[2] = CurlRange(0.5, 1.2) }},
		{"unknown requirement", func(c *Catalog) { c.Poses[0].Fingers[0] = Requirement{Kind: "bent"} }},
		{"unknown palm", func(c *Catalog) { c.Poses[0].Palm = "sideways" }},
		{"tolerance above one", func(c *Catalog) { c.Poses[0].Tolerance = 1.5 }},
		{"negative tolerance", func(c *Catalog) { c.Poses[0].Tolerance = -0.1 }},
		{"empty motion id", func(c *Catalog) { c.Motions[0].ID = "" }},
		{"duplicate motion", func(c *Catalog) { c.Motions[1].ID = c.Motions[0].ID }},
		{"reserved motion id", func(c *Catalog) { c.Motions[0].ID = GesturePinchIn }},
		{"unknown start pose", func(c *Catalog) { c.Motions[0].StartPose = "jazz_hands" }},
		{"negative distance", func(c *Catalog) { c.Motions[0].MinDistance = -1 }},
		{"zero duration", func(c *Catalog) { c.Motions[0].MaxDuration = 0 }},
		{"tolerance without direction", func(c *Catalog) { c.Motions[0].Direction = nil }},
		{"zero direction", func(c *Catalog) { c.Motions[0].Direction = &zero }},
		{"direction tolerance above one", func(c *Catalog) { c.Motions[0].DirectionTolerance = 2 }},
		{"negative velocity", func(c *Catalog) { c.Motions[0].MinVelocity = ptr(-1.0) }},
		{"min above max velocity", func(c *Catalog) { c.Motions[0].MaxVelocity = ptr(0.1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			c.Poses = append([]PoseDefinition(nil), c.Poses...)
			c.Motions = append([]MotionDefinition(nil), c.Motions...)
			tt.mutate(&c)

			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		c := Catalog{
			Poses:   []PoseDefinition{{ID: "a", Tolerance: 2}},
			Motions: []MotionDefinition{{ID: "b", MinDistance: -1}},
		}
		err := c.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		var joined interface{ Unwrap() []error }
		if !errors.As(err, &joined) {
			t.Fatalf("expected a joined error, got %T", err)
		}
	})
}

func TestCatalog_Filter(t *testing.T) {
	c := DefaultCatalog()

	all := c.Filter(nil, nil)
	if len(all.Poses) != len(c.Poses) || len(all.Motions) != len(c.Motions) {
		t.Error("empty filters should keep everything")
	}

	only := c.Filter([]string{"point", "unknown"}, []string{"swipe_left", GestureRotateCW})
	if len(only.Poses) != 1 || only.Poses[0].ID != "point" {
		t.Errorf("unexpected poses %+v", only.Poses)
	}
	if len(only.Motions) != 1 || only.Motions[0].ID != "swipe_left" {
		t.Errorf("unexpected motions %+v", only.Motions)
	}
}

func TestCatalog_WithPoses(t *testing.T) {
	c := DefaultCatalog()
	replaced := PoseDefinition{ID: "fist", Fingers: uniform(CurlRange(0.5, 1)), Tolerance: 0.3}
	added := PoseDefinition{ID: "claw", Fingers: uniform(CurlRange(0.3, 0.6)), Tolerance: 0.2}

	out := c.WithPoses(replaced, added)

	if len(out.Poses) != len(c.Poses)+1 {
		t.Fatalf("expected %d poses, got %d", len(c.Poses)+1, len(out.Poses))
	}
	if p, _ := out.Pose("fist"); p.Tolerance != 0.3 {
		t.Error("fist should be replaced")
	}
	if p, _ := c.Pose("fist"); p.Tolerance != 0.2 {
		t.Error("original catalog must not change")
	}
	if _, ok := out.Pose("claw"); !ok {
		t.Error("claw should be appended")
	}
}
