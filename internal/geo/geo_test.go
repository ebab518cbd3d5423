// internal/geo/geo_test.go
package geo

import (
	"math"
	"strings"
	"testing"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := NewWorkspace(Geometry{
		Width:         400,
		Length:        400,
		Height:        300,
		FloorMargin:   20,
		CeilingMargin: 50,
		MaxAngleDeg:   60,
	})
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	return w
}

func TestNewWorkspace_RejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name string
		g    Geometry
	}{
		{"zero width", Geometry{Width: 0, Length: 400, Height: 300, MaxAngleDeg: 60}},
		{"margins swallow height", Geometry{Width: 400, Length: 400, Height: 100, FloorMargin: 60, CeilingMargin: 50, MaxAngleDeg: 60}},
		{"angle 90", Geometry{Width: 400, Length: 400, Height: 300, MaxAngleDeg: 90}},
	}

	for _, tc := range cases {
		if _, err := NewWorkspace(tc.g); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestInverseKinematics_CenterIsSymmetric(t *testing.T) {
	w := testWorkspace(t)

	lengths := w.InverseKinematics(Point{200, 200, 150})
	want := math.Sqrt(200*200 + 200*200 + 150*150) // ≈ 320.16

	if len(lengths) != NumWinches {
		t.Fatalf("expected %d lengths, got %d", NumWinches, len(lengths))
	}
	for id, l := range lengths {
		if math.Abs(l-want) > 1e-9 {
			t.Fatalf("winch %d: got %.4f, want %.4f", id, l, want)
		}
	}
}

func TestIsSafe(t *testing.T) {
	w := testWorkspace(t)

	cases := []struct {
		name   string
		p      Point
		safe   bool
		reason string
	}{
		{"center", Point{200, 200, 130}, true, ""},
		// At mid-height the center is already outside the pyramid:
		// tan = sqrt(200²+200²)/150 ≈ 1.89 > tan 60°.
		{"center too high for angle", Point{200, 200, 150}, false, "angle too steep"},
		{"above ceiling margin", Point{200, 200, 280}, false, "Z out of bounds"},
		{"corner angle violation", Point{10, 10, 150}, false, "angle too steep"},
		{"below floor margin", Point{200, 200, 10}, false, "Z out of bounds"},
		{"x negative", Point{-1, 200, 150}, false, "X out of bounds"},
	}

	for _, tc := range cases {
		ok, reason := w.IsSafe(tc.p)
		if ok != tc.safe {
			t.Fatalf("%s: safe=%v (%s), want %v", tc.name, ok, reason, tc.safe)
		}
		if !tc.safe && !strings.Contains(reason, tc.reason) {
			t.Fatalf("%s: reason %q does not mention %q", tc.name, reason, tc.reason)
		}
	}
}

func TestFindSafeBoundary_AlreadySafe(t *testing.T) {
	w := testWorkspace(t)

	// (210,190) at z=120: worst anchor is ~297cm away, tan ≈ 1.65 < tan 60°.
	got := w.FindSafeBoundary(Point{X: 210, Y: 190}, 120)
	if got.X != 210 || got.Y != 190 || got.Z != 120 {
		t.Fatalf("safe target must come back unchanged, got %+v", got)
	}
}

func TestFindSafeBoundary_ClampsTowardCenter(t *testing.T) {
	w := testWorkspace(t)

	target := Point{X: 0, Y: 0}
	got := w.FindSafeBoundary(target, 120)

	if ok, reason := w.IsSafe(got); !ok {
		t.Fatalf("boundary point %+v not safe: %s", got, reason)
	}

	// strictly between center and target
	if !(got.X > 0 && got.X < 200) || !(got.Y > 0 && got.Y < 200) {
		t.Fatalf("boundary point %+v not between center and corner", got)
	}
}

func TestFindMaxHeight(t *testing.T) {
	w := testWorkspace(t)

	// Center: furthest anchor is any corner, horiz = sqrt(200²+200²).
	horiz := math.Hypot(200, 200)
	want := 300 - horiz/math.Tan(60*math.Pi/180)

	got := w.FindMaxHeight(200, 200)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("center max height: got %.3f, want %.3f", got, want)
	}

	// Near a corner the opposite anchor dominates and pushes max Z below
	// the floor-reachable band; it must still clamp under the ceiling.
	if h := w.FindMaxHeight(10, 10); h > 250 {
		t.Fatalf("corner max height %.1f exceeds ceiling clamp", h)
	}

	if ok, _ := w.IsSafe(Point{200, 200, got - 0.5}); !ok {
		t.Fatal("just below max height must be safe")
	}
	if ok, _ := w.IsSafe(Point{200, 200, got + 0.5}); ok {
		t.Fatal("just above max height must violate the angle constraint")
	}
}
