// internal/link/requests.go
package link

import (
	"context"
	"fmt"
	"time"

	"github.com/tamzrod/cablerig/internal/protocol"
)

// ---- MOTION ----

// Move updates the target state; the keep-alive loop owns transmission.
func (l *Link) Move(dir protocol.MoveCode, speed uint8) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	if speed > 100 {
		speed = 100
	}
	l.setTarget(dir, speed)
	return nil
}

// OverrideMove drives past a tripped soft limit using the override move
// codes. Same keep-alive contract as Move.
func (l *Link) OverrideMove(dir protocol.MoveCode, speed uint8) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	if speed > 100 {
		speed = 100
	}
	l.setTarget(dir.Override(), speed)
	return nil
}

// Stop zeroes the target and additionally fires one immediate frame for
// responsiveness. The immediate send is best-effort: the loop converges to
// stop on its next cycle either way.
func (l *Link) Stop() error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	l.setTarget(protocol.MoveStop, 0)

	pos := l.st.Load().position
	if err := l.writeFrame(protocol.EncodeMove(protocol.MoveStop, 0, pos)); err != nil {
		l.log.WithError(err).Warn("immediate stop frame failed")
	}
	return nil
}

// ---- FIRE-AND-FORGET COMMANDS ----

// ClearError asks the device to drop its latched error state.
func (l *Link) ClearError() error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	return l.writeFrame(protocol.Encode(protocol.CmdClearError, nil))
}

// SetSmartPoint persists the current position as a device-side soft limit.
func (l *Link) SetSmartPoint(p protocol.SmartPoint) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	l.log.Infof("setting smart point %s", p)
	return l.writeFrame(protocol.EncodeSmartPoint(protocol.CmdCalibrate, p))
}

// ClearSmartPoint erases a persisted soft limit.
func (l *Link) ClearSmartPoint(p protocol.SmartPoint) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	l.log.Infof("clearing smart point %s", p)
	return l.writeFrame(protocol.EncodeSmartPoint(protocol.CmdClearCalibration, p))
}

// FactoryCalibrate starts (1) or stops (0) the factory calibration routine.
func (l *Link) FactoryCalibrate(code uint8) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	l.log.Warnf("factory calibrate, code %d", code)
	return l.writeFrame(protocol.Encode(protocol.CmdFactoryCalibrate, []byte{code}))
}

// ---- SINGLE-SHOT QUERIES ----

// request sends one query frame and waits for the matching response payload.
// At most one request per command byte may be in flight; the write mutex
// keeps the frame from interleaving with the keep-alive loop.
func (l *Link) request(ctx context.Context, cmd protocol.Command) ([]byte, error) {
	if !l.connected.Load() {
		return nil, ErrNotConnected
	}

	ch := make(chan []byte, 1)
	l.pendMu.Lock()
	if _, busy := l.pending[cmd]; busy {
		l.pendMu.Unlock()
		return nil, fmt.Errorf("%w: %#x", ErrRequestPending, cmd)
	}
	l.pending[cmd] = ch
	l.pendMu.Unlock()

	abandon := func() {
		l.pendMu.Lock()
		delete(l.pending, cmd)
		l.pendMu.Unlock()
	}

	if err := l.writeFrame(protocol.Encode(cmd, nil)); err != nil {
		abandon()
		return nil, err
	}

	select {
	case payload := <-ch:
		return payload, nil
	case <-time.After(l.tm.requestTimeout):
		abandon()
		return nil, fmt.Errorf("%w: %#x", ErrRequestTimeout, cmd)
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// GetStats fetches and decodes the device's lifetime counters. A non-zero
// error-class bitmask is worth surfacing immediately.
func (l *Link) GetStats(ctx context.Context) (protocol.Stats, error) {
	payload, err := l.request(ctx, protocol.CmdGetStats)
	if err != nil {
		return protocol.Stats{}, err
	}
	s, err := protocol.DecodeStats(payload)
	if err != nil {
		return protocol.Stats{}, err
	}
	if s.ErrorClasses != 0 {
		l.log.Warnf("stats error-class bitmask %#x (errors %d)", s.ErrorClasses, s.ErrorCount)
	}
	return s, nil
}

// GetVersion fetches hardware and firmware revision info.
func (l *Link) GetVersion(ctx context.Context) (protocol.Version, error) {
	payload, err := l.request(ctx, protocol.CmdGetVersion)
	if err != nil {
		return protocol.Version{}, err
	}
	return protocol.DecodeVersion(payload)
}

// GetProtocolVersion fetches the nibble-encoded wire protocol version.
func (l *Link) GetProtocolVersion(ctx context.Context) (protocol.ProtocolVersion, error) {
	payload, err := l.request(ctx, protocol.CmdGetProtocolVersion)
	if err != nil {
		return protocol.ProtocolVersion{}, err
	}
	return protocol.DecodeProtocolVersion(payload)
}
