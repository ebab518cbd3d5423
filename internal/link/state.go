// internal/link/state.go
package link

// Calibration converts raw encoder ticks to cable length.
// distance = Slope*position + Intercept, centimeters.
type Calibration struct {
	Slope     float64
	Intercept float64
}

// Snapshot is a point-in-time copy of one winch's state. Position stays
// unknown until the first authoritative MOVE response arrives; after that it
// is updated only from device feedback, never predicted locally. Zero is a
// valid position and never doubles as "not yet synced".
type Snapshot struct {
	Connected     bool
	PositionKnown bool
	Position      int32
	Weight        uint16
	ErrorCode     uint8
	SyncErrors    uint32
}

// deviceState is the dispatch goroutine's private copy; everyone else reads
// it through the link's atomic pointer.
type deviceState struct {
	positionKnown bool
	position      int32
	weight        uint16
	errorCode     uint8
	syncErrors    uint32
}

// Distance applies cal to a snapshot's position. Meaningless while the
// position is unknown; callers gate on PositionKnown.
func (s Snapshot) Distance(cal Calibration) float64 {
	return cal.Slope*float64(s.Position) + cal.Intercept
}
