// internal/geo/safety.go
package geo

import (
	"fmt"
	"math"
)

// The safe volume is the workspace box intersected with a per-anchor maximum
// cable angle. The angle constraint tightens toward the ceiling, so the
// volume narrows upward into an inverted pyramid.

// singularityDist is how close to the anchor plane (cm) the angle math
// degenerates and the point is rejected outright.
const singularityDist = 0.1

// IsSafe reports whether p lies inside the safe volume. On failure the
// returned reason names the first violated constraint.
func (w *Workspace) IsSafe(p Point) (bool, string) {
	g := w.geom

	if p.X < 0 || p.X > g.Width {
		return false, "X out of bounds"
	}
	if p.Y < 0 || p.Y > g.Length {
		return false, "Y out of bounds"
	}
	if p.Z < g.FloorMargin || p.Z > g.Height-g.CeilingMargin {
		return false, "Z out of bounds (floor/ceiling margin)"
	}

	vert := g.Height - p.Z
	if vert <= singularityDist {
		return false, "too close to ceiling (singularity)"
	}

	for id, a := range w.anchors {
		horiz := math.Hypot(p.X-a.X, p.Y-a.Y)
		tanTheta := horiz / vert
		if tanTheta > w.maxTan {
			deg := math.Atan(tanTheta) * 180 / math.Pi
			return false, fmt.Sprintf("cable %d angle too steep (%.1f° > %.1f°)", id, deg, g.MaxAngleDeg)
		}
	}

	return true, "safe"
}

// boundaryIterations gives roughly centimeter precision over workspace-scale
// segments.
const boundaryIterations = 10

// FindSafeBoundary returns target unchanged when it is already safe at
// height z. Otherwise it binary-searches along the segment from the
// workspace center to target and returns the furthest point that is still
// safe.
func (w *Workspace) FindSafeBoundary(target Point, z float64) Point {
	cx, cy := w.geom.Width/2, w.geom.Length/2

	if ok, _ := w.IsSafe(Point{target.X, target.Y, z}); ok {
		return Point{target.X, target.Y, z}
	}

	low, high, best := 0.0, 1.0, 0.0
	for i := 0; i < boundaryIterations; i++ {
		mid := (low + high) / 2
		p := Point{cx + mid*(target.X-cx), cy + mid*(target.Y-cy), z}
		if ok, _ := w.IsSafe(p); ok {
			best = mid
			low = mid
		} else {
			high = mid
		}
	}

	return Point{cx + best*(target.X-cx), cy + best*(target.Y-cy), z}
}

// FindMaxHeight solves for the highest safe Z over (x, y). The anchor
// furthest from (x, y) holds the binding angle constraint; the result is
// clamped below the ceiling margin.
func (w *Workspace) FindMaxHeight(x, y float64) float64 {
	var maxHoriz float64
	for _, a := range w.anchors {
		if d := math.Hypot(x-a.X, y-a.Y); d > maxHoriz {
			maxHoriz = d
		}
	}

	maxZ := w.geom.Height - maxHoriz/w.maxTan
	ceiling := w.geom.Height - w.geom.CeilingMargin
	return math.Min(maxZ, ceiling)
}
