// internal/geo/geometry.go
package geo

import (
	"errors"
	"math"
)

// WinchID identifies one winch/anchor pair, 1..4.
type WinchID int

// Anchor order around the workspace box, looking down:
// 1 front-left, 2 front-right, 3 back-right, 4 back-left.
const (
	FrontLeft WinchID = iota + 1
	FrontRight
	BackRight
	BackLeft
)

const NumWinches = 4

// Point is a position in the workspace, centimeters.
// Origin at the floor under the front-left anchor, Z up.
type Point struct {
	X, Y, Z float64
}

// Geometry is the immutable workspace description for one session.
type Geometry struct {
	Width         float64 // X extent, cm
	Length        float64 // Y extent, cm
	Height        float64 // anchor height, cm
	FloorMargin   float64 // minimum Z, cm
	CeilingMargin float64 // keep-out below anchors, cm
	MaxAngleDeg   float64 // max cable angle from vertical
}

// Workspace is geometry plus the derived anchor positions.
type Workspace struct {
	geom    Geometry
	anchors map[WinchID]Point
	maxTan  float64
}

// NewWorkspace validates geometry and places the four anchors at ceiling
// height on the rectangle corners.
func NewWorkspace(g Geometry) (*Workspace, error) {
	if g.Width <= 0 || g.Length <= 0 || g.Height <= 0 {
		return nil, errors.New("geo: width, length and height must be > 0")
	}
	if g.FloorMargin < 0 || g.CeilingMargin < 0 {
		return nil, errors.New("geo: margins must be >= 0")
	}
	if g.FloorMargin+g.CeilingMargin >= g.Height {
		return nil, errors.New("geo: margins leave no usable height")
	}
	if g.MaxAngleDeg <= 0 || g.MaxAngleDeg >= 90 {
		return nil, errors.New("geo: max angle must be in (0, 90)")
	}

	return &Workspace{
		geom: g,
		anchors: map[WinchID]Point{
			FrontLeft:  {0, 0, g.Height},
			FrontRight: {g.Width, 0, g.Height},
			BackRight:  {g.Width, g.Length, g.Height},
			BackLeft:   {0, g.Length, g.Height},
		},
		maxTan: math.Tan(g.MaxAngleDeg * math.Pi / 180),
	}, nil
}

// Geometry returns the session geometry.
func (w *Workspace) Geometry() Geometry { return w.geom }

// Anchor returns the fixed point a winch's cable hangs from.
func (w *Workspace) Anchor(id WinchID) (Point, bool) {
	p, ok := w.anchors[id]
	return p, ok
}

// Center is the workspace center at mid-height, the natural home position.
func (w *Workspace) Center() Point {
	return Point{w.geom.Width / 2, w.geom.Length / 2, w.geom.Height / 2}
}

// InverseKinematics returns the required cable length per winch for the
// payload to sit at p: the straight-line distance from p to each anchor.
func (w *Workspace) InverseKinematics(p Point) map[WinchID]float64 {
	lengths := make(map[WinchID]float64, len(w.anchors))
	for id, a := range w.anchors {
		dx, dy, dz := p.X-a.X, p.Y-a.Y, p.Z-a.Z
		lengths[id] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return lengths
}
