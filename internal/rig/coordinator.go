// internal/rig/coordinator.go
package rig

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/link"
	"github.com/tamzrod/cablerig/internal/protocol"
)

// Winch is the slice of a link the coordinator drives. *link.Link satisfies
// it; tests use fakes.
type Winch interface {
	ID() int
	Connected() bool
	State() link.Snapshot
	Calibration() link.Calibration
	Move(dir protocol.MoveCode, speed uint8) error
	OverrideMove(dir protocol.MoveCode, speed uint8) error
	Stop() error
	ClearError() error
	SetSmartPoint(p protocol.SmartPoint) error
	ClearSmartPoint(p protocol.SmartPoint) error
}

// ---- SPEED SYNCHRONIZATION ----

const (
	// Speed floor guarantees motion, ceiling respects the request.
	minSpeed = 25
	maxSpeed = 100

	// minSyncDelta: below this spread (cm) scaling is pointless and every
	// winch gets the requested speed unmodified.
	minSyncDelta = 0.5
)

// ---- MOVE MONITORING DEFAULTS ----

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultDeadband     = 200 // raw ticks
)

var (
	// ErrWinchDisconnected rejects a move before any transport I/O.
	ErrWinchDisconnected = errors.New("rig: winch disconnected")

	// ErrUnsafeTarget rejects a target outside the safety envelope.
	ErrUnsafeTarget = errors.New("rig: target outside safety envelope")
)

// Config tunes the coordinator.
type Config struct {
	// SoftLimitAborts decides whether one winch's soft limit aborts the
	// whole synchronized move or is only reported for that winch.
	SoftLimitAborts bool

	// PollInterval between monitor checks. Zero means 100ms.
	PollInterval time.Duration

	// Deadband in raw ticks around the target considered "arrived".
	// Zero means 200.
	Deadband int32
}

// Coordinator drives the four winches as one cable robot.
type Coordinator struct {
	ws  *geo.Workspace
	cfg Config
	log *logrus.Entry

	winches map[geo.WinchID]Winch

	mu         sync.Mutex
	lastTarget *geo.Point
}

// New wires winches to their anchors. Every id must map to an anchor.
func New(ws *geo.Workspace, winches map[geo.WinchID]Winch, cfg Config, log *logrus.Logger) (*Coordinator, error) {
	if len(winches) == 0 {
		return nil, errors.New("rig: at least one winch required")
	}
	for id, w := range winches {
		if _, ok := ws.Anchor(id); !ok {
			return nil, fmt.Errorf("rig: winch %d has no anchor", id)
		}
		// plan divides by the slope to convert lengths back to ticks.
		if w.Calibration().Slope == 0 {
			return nil, fmt.Errorf("rig: winch %d has no calibration", id)
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Deadband <= 0 {
		cfg.Deadband = defaultDeadband
	}
	return &Coordinator{
		ws:      ws,
		cfg:     cfg,
		log:     log.WithField("component", "rig"),
		winches: winches,
	}, nil
}

// Workspace exposes the safety envelope for callers planning waypoints.
func (c *Coordinator) Workspace() *geo.Workspace { return c.ws }

// LastTarget returns the last committed move target, if any.
func (c *Coordinator) LastTarget() (geo.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastTarget == nil {
		return geo.Point{}, false
	}
	return *c.lastTarget, true
}

// Status returns a state snapshot per winch for display and export.
func (c *Coordinator) Status() map[geo.WinchID]link.Snapshot {
	out := make(map[geo.WinchID]link.Snapshot, len(c.winches))
	for id, w := range c.winches {
		out[id] = w.State()
	}
	return out
}

// winchPlan is one winch's share of a coordinated move.
type winchPlan struct {
	id        geo.WinchID
	direction protocol.MoveCode
	speed     uint8
	targetPos int32
	override  bool
}

// plan computes per-winch directions, target positions and synchronized
// speeds. Speeds scale with each winch's share of the largest travel so all
// cables arrive together, clamped to [25, 100]; a spread under half a
// centimeter is driven at the requested speed unscaled.
func (c *Coordinator) plan(p geo.Point, speed uint8, overrides map[geo.WinchID]bool) []winchPlan {
	targets := c.ws.InverseKinematics(p)

	deltas := make(map[geo.WinchID]float64, len(c.winches))
	var maxDelta float64
	for id, w := range c.winches {
		cur := w.State().Distance(w.Calibration())
		d := targets[id] - cur
		if d < 0 {
			d = -d
		}
		deltas[id] = d
		if d > maxDelta {
			maxDelta = d
		}
	}

	plans := make([]winchPlan, 0, len(c.winches))
	for id, w := range c.winches {
		cal := w.Calibration()
		st := w.State()
		cur := st.Distance(cal)
		target := targets[id]

		// Up retracts cable (shorter), down extends it.
		dir := protocol.MoveDown
		if target < cur {
			dir = protocol.MoveUp
		}

		cmdSpeed := speed
		if maxDelta > minSyncDelta {
			scaled := float64(speed) * deltas[id] / maxDelta
			if scaled < minSpeed {
				scaled = minSpeed
			}
			if scaled > maxSpeed {
				scaled = maxSpeed
			}
			cmdSpeed = uint8(math.Round(scaled))
		}

		plans = append(plans, winchPlan{
			id:        id,
			direction: dir,
			speed:     cmdSpeed,
			targetPos: int32((target - cal.Intercept) / cal.Slope),
			override:  overrides[id],
		})
	}
	return plans
}
