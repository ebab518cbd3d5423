// internal/rig/recovery.go
package rig

import (
	"context"
	"fmt"

	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/protocol"
)

// smartPointFor maps a blocked travel direction to the smart point holding
// it: down runs into the bottom limit, up into the top one.
func smartPointFor(dir protocol.MoveCode) protocol.SmartPoint {
	if dir == protocol.MoveUp || dir == protocol.MoveOverrideUp {
		return protocol.SmartPointTop
	}
	return protocol.SmartPointBottom
}

// RecoverSoftLimits is the operator-authorized recovery step after a move
// came back blocked: clear the persisted smart point on exactly the blocked
// winches in their blocked direction, retry the identical move, and on
// success persist a new smart point at the newly reached extreme for those
// same winches. Limits on winches that did not fault are never touched.
func (c *Coordinator) RecoverSoftLimits(ctx context.Context, blocked map[geo.WinchID]protocol.MoveCode, p geo.Point, speed uint8) (MoveResult, error) {
	if len(blocked) == 0 {
		return MoveResult{}, fmt.Errorf("rig: nothing to recover")
	}

	for id, dir := range blocked {
		w, ok := c.winches[id]
		if !ok {
			return MoveResult{}, fmt.Errorf("rig: unknown winch %d", id)
		}
		point := smartPointFor(dir)
		c.log.Warnf("winch %d: clearing %s smart point for recovery", id, point)
		if err := w.ClearSmartPoint(point); err != nil {
			return MoveResult{}, fmt.Errorf("rig: clear smart point on winch %d: %w", id, err)
		}
		if err := w.ClearError(); err != nil {
			return MoveResult{}, fmt.Errorf("rig: clear error on winch %d: %w", id, err)
		}
	}

	res, err := c.MoveTo(ctx, p, speed, nil)
	if err != nil {
		return res, err
	}
	if !res.Committed {
		c.log.Warn("recovery retry did not commit; limits stay cleared")
		return res, nil
	}

	for id, dir := range blocked {
		w := c.winches[id]
		point := smartPointFor(dir)
		c.log.Infof("winch %d: persisting new %s smart point", id, point)
		if err := w.SetSmartPoint(point); err != nil {
			return res, fmt.Errorf("rig: set smart point on winch %d: %w", id, err)
		}
	}
	return res, nil
}
