// internal/rig/outcome.go
package rig

import (
	"sync/atomic"

	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/protocol"
)

// OutcomeKind classifies how one winch's part of a coordinated move ended.
type OutcomeKind int

const (
	// OutcomeOK: arrived within the deadband.
	OutcomeOK OutcomeKind = iota

	// OutcomeAborted: a sibling raised the shared abort; this winch just
	// stopped and has nothing of its own to report.
	OutcomeAborted

	// OutcomeSoftLimit: a smart point blocked travel. Recoverable with an
	// operator-authorized override.
	OutcomeSoftLimit

	// OutcomeHardLimit: end of travel. Not overridable; aborts the move.
	OutcomeHardLimit

	// OutcomeDisconnected: the link went down mid-move; aborts the move.
	OutcomeDisconnected

	// OutcomeError: any other device fault, carried in Reason.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeAborted:
		return "aborted"
	case OutcomeSoftLimit:
		return "soft-limit"
	case OutcomeHardLimit:
		return "hard-limit"
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the tagged per-winch result. Direction is set for soft limits:
// the move code that was blocked.
type Outcome struct {
	Kind      OutcomeKind
	Direction protocol.MoveCode
	Reason    string
}

// MoveResult is the whole coordinated move's verdict.
type MoveResult struct {
	Committed bool
	PerWinch  map[geo.WinchID]Outcome
}

// Blocked returns exactly the winches stopped by a soft limit, with the
// direction that was blocked. The recovery protocol touches these and no
// others.
func (r MoveResult) Blocked() map[geo.WinchID]protocol.MoveCode {
	out := make(map[geo.WinchID]protocol.MoveCode)
	for id, o := range r.PerWinch {
		if o.Kind == OutcomeSoftLimit {
			out[id] = o.Direction
		}
	}
	return out
}

// abortSignal is the one cross-winch synchronization primitive of a move:
// level-triggered, raised at most once, observed by polling.
type abortSignal struct {
	flag atomic.Bool
}

func (a *abortSignal) raise()       { a.flag.Store(true) }
func (a *abortSignal) raised() bool { return a.flag.Load() }
