// internal/statusexport/block.go
package statusexport

import (
	"github.com/tamzrod/cablerig/internal/link"
	"github.com/tamzrod/cablerig/internal/protocol"
)

// Winch status block layout.
// These values define the export protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerWinch is the fixed number of registers per winch.
const SlotsPerWinch = 8

// ---- SLOT INDICES ----

// SlotHealthCode holds the winch health state.
const SlotHealthCode = 0

// SlotFaultCode holds the current raw device fault code.
const SlotFaultCode = 1

// SlotPositionHi and SlotPositionLo hold the signed 32-bit position,
// big-endian across the two registers.
const SlotPositionHi = 2
const SlotPositionLo = 3

// SlotWeight holds the raw load cell reading.
const SlotWeight = 4

// SlotSyncErrors holds the count of transient sync errors seen.
const SlotSyncErrors = 5

// Slots 6-7 are reserved for future use.
const SlotReservedStart = 6
const SlotReservedEnd = 7

// ---- HEALTH CODES ----

// HealthUnknown represents a boot state with no position fix yet.
const HealthUnknown uint16 = 0

// HealthOK represents a connected winch with a known position.
const HealthOK uint16 = 1

// HealthFault represents a winch reporting a device fault.
const HealthFault uint16 = 2

// HealthDisconnected represents a winch whose link is down.
const HealthDisconnected uint16 = 3

// Encode converts a link snapshot into a full winch status block.
// Layout is protocol-locked. No IO. No side effects.
func Encode(s link.Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerWinch)

	regs[SlotHealthCode] = healthOf(s)
	regs[SlotFaultCode] = uint16(s.ErrorCode)
	regs[SlotPositionHi] = uint16(uint32(s.Position) >> 16)
	regs[SlotPositionLo] = uint16(uint32(s.Position))
	regs[SlotWeight] = s.Weight

	syncs := s.SyncErrors
	if syncs > 65535 {
		syncs = 65535
	}
	regs[SlotSyncErrors] = uint16(syncs)

	return regs
}

func healthOf(s link.Snapshot) uint16 {
	switch {
	case !s.Connected:
		return HealthDisconnected
	case s.ErrorCode != protocol.ErrNone:
		return HealthFault
	case !s.PositionKnown:
		return HealthUnknown
	}
	return HealthOK
}
