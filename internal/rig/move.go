// internal/rig/move.go
package rig

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/protocol"
)

// MoveTo executes one synchronized move of the payload to p. The target is
// rejected before any transport I/O when it fails the safety predicate or a
// participating winch is disconnected; a rejected move is never partially
// issued. overrides lists winches allowed to drive past a tripped soft
// limit; nil means none.
func (c *Coordinator) MoveTo(ctx context.Context, p geo.Point, speed uint8, overrides map[geo.WinchID]bool) (MoveResult, error) {
	if ok, reason := c.ws.IsSafe(p); !ok {
		c.log.Warnf("move rejected: %s", reason)
		return MoveResult{}, fmt.Errorf("%w: %s", ErrUnsafeTarget, reason)
	}
	for id, w := range c.winches {
		if !w.Connected() {
			c.log.Warnf("move rejected: winch %d disconnected", id)
			return MoveResult{}, fmt.Errorf("%w: winch %d", ErrWinchDisconnected, id)
		}
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}

	plans := c.plan(p, speed, overrides)
	c.log.Infof("moving to (%.1f, %.1f, %.1f)", p.X, p.Y, p.Z)

	abort := &abortSignal{}
	outcomes := make([]Outcome, len(plans))

	var wg sync.WaitGroup
	for i, pl := range plans {
		wg.Add(1)
		go func(i int, pl winchPlan) {
			defer wg.Done()
			outcomes[i] = c.monitor(ctx, c.winches[pl.id], pl, abort)
		}(i, pl)
	}
	wg.Wait()

	res := MoveResult{PerWinch: make(map[geo.WinchID]Outcome, len(plans))}
	var fatal, soft bool
	for i, pl := range plans {
		o := outcomes[i]
		if o.Kind == OutcomeAborted {
			// Sibling-raised abort: stopped, nothing of its own to report.
			continue
		}
		res.PerWinch[pl.id] = o
		switch o.Kind {
		case OutcomeDisconnected, OutcomeHardLimit, OutcomeError:
			fatal = true
		case OutcomeSoftLimit:
			soft = true
		}
	}

	switch {
	case fatal:
		c.log.Error("move aborted")
	case soft:
		c.log.Warnf("move blocked by soft limits on %v", res.Blocked())
	default:
		res.Committed = true
		c.mu.Lock()
		c.lastTarget = &geo.Point{X: p.X, Y: p.Y, Z: p.Z}
		c.mu.Unlock()
		c.log.Info("move complete")
	}
	return res, nil
}

// monitor drives one winch and polls until an exit condition. The winch is
// stopped on every exit path.
func (c *Coordinator) monitor(ctx context.Context, w Winch, pl winchPlan, abort *abortSignal) Outcome {
	var err error
	if pl.override {
		err = w.OverrideMove(pl.direction, pl.speed)
	} else {
		err = w.Move(pl.direction, pl.speed)
	}
	if err != nil {
		abort.raise()
		return Outcome{Kind: OutcomeDisconnected, Reason: err.Error()}
	}
	defer func() {
		if err := w.Stop(); err != nil {
			c.log.WithError(err).Warnf("winch %d stop failed", pl.id)
		}
	}()

	for {
		if abort.raised() {
			return Outcome{Kind: OutcomeAborted}
		}
		if !w.Connected() {
			abort.raise()
			c.log.Errorf("winch %d disconnected mid-move", pl.id)
			return Outcome{Kind: OutcomeDisconnected}
		}

		st := w.State()
		switch st.ErrorCode {
		case protocol.ErrNone, protocol.ErrSyncError:
			// Sync errors are the link's to log; motion continues.

		case protocol.ErrSoftLimit:
			// Whether one blocked winch ends the whole move is policy.
			if c.cfg.SoftLimitAborts {
				abort.raise()
			}
			return Outcome{Kind: OutcomeSoftLimit, Direction: pl.direction}

		case protocol.ErrHardLimit:
			abort.raise()
			c.log.Errorf("winch %d hit end of travel", pl.id)
			return Outcome{Kind: OutcomeHardLimit}

		default:
			abort.raise()
			return Outcome{Kind: OutcomeError, Reason: protocol.FaultName(st.ErrorCode)}
		}

		if st.PositionKnown {
			diff := st.Position - pl.targetPos
			if diff < 0 {
				diff = -diff
			}
			if diff < c.cfg.Deadband {
				return Outcome{Kind: OutcomeOK}
			}
		}

		select {
		case <-ctx.Done():
			abort.raise()
			return Outcome{Kind: OutcomeError, Reason: ctx.Err().Error()}
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// NudgeOverride walks specific winches off a limit: a bounded-duration,
// position-feedback-free move with the override codes. Every winch is
// stopped when the duration elapses, whatever else happened.
func (c *Coordinator) NudgeOverride(ctx context.Context, dirs map[geo.WinchID]protocol.MoveCode, speed uint8, d time.Duration) error {
	if speed > maxSpeed {
		speed = maxSpeed
	}

	var started []Winch
	var firstErr error
	for id, dir := range dirs {
		w, ok := c.winches[id]
		if !ok {
			continue
		}
		if err := w.OverrideMove(dir, speed); err != nil {
			firstErr = fmt.Errorf("rig: nudge winch %d: %w", id, err)
			break
		}
		started = append(started, w)
	}

	if firstErr == nil {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			firstErr = ctx.Err()
		}
	}

	for _, w := range started {
		if err := w.Stop(); err != nil {
			c.log.WithError(err).Warnf("winch %d stop after nudge failed", w.ID())
		}
	}
	return firstErr
}
