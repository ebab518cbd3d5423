// internal/protocol/commands.go
package protocol

// Command is the leading byte of every frame in either direction.
type Command uint8

// ---- COMMAND CODES ----

const (
	CmdNack               Command = 0x00
	CmdAck                Command = 0x01
	CmdPasskey            Command = 0x03 // GET (empty payload) and SET (6-byte key) share the code
	CmdGetProtocolVersion Command = 0x05
	CmdClearError         Command = 0x06
	CmdGetVersion         Command = 0x0A
	CmdMove               Command = 0x23
	CmdGoOverride         Command = 0x25
	CmdCalibrate          Command = 0x32 // set smart point
	CmdClearCalibration   Command = 0x33 // clear smart point
	CmdGetStats           Command = 0x34
	CmdFactoryCalibrate   Command = 0xFA
)

// MoveCode selects the motion mode inside a MOVE frame.
type MoveCode uint8

const (
	MoveStop MoveCode = iota
	MoveUp
	MoveDown
	MoveSmartUp
	MoveSmartDown
	MoveReference
	MoveStopError
	MoveOverrideUp
	MoveOverrideDown
)

// Override maps Up/Down to the limit-bypassing codes. Other codes pass through.
func (m MoveCode) Override() MoveCode {
	switch m {
	case MoveUp:
		return MoveOverrideUp
	case MoveDown:
		return MoveOverrideDown
	}
	return m
}

func (m MoveCode) String() string {
	switch m {
	case MoveStop:
		return "stop"
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveSmartUp:
		return "smart-up"
	case MoveSmartDown:
		return "smart-down"
	case MoveReference:
		return "reference"
	case MoveStopError:
		return "stop-error"
	case MoveOverrideUp:
		return "override-up"
	case MoveOverrideDown:
		return "override-down"
	}
	return "unknown"
}

// SmartPoint is a persisted device-side soft-limit position.
type SmartPoint uint8

const (
	SmartPointReference SmartPoint = iota
	SmartPointTop
	SmartPointBottom
)

func (p SmartPoint) String() string {
	switch p {
	case SmartPointReference:
		return "reference"
	case SmartPointTop:
		return "top"
	case SmartPointBottom:
		return "bottom"
	}
	return "unknown"
}

// ---- DEVICE FAULT CODES (MOVE response error byte) ----

const (
	ErrNone            uint8 = 0x00
	ErrSyncError       uint8 = 0x09 // device position diverged from last echoed position
	ErrSoftLimit       uint8 = 0x81
	ErrSmartPointUnset uint8 = 0x83
	ErrHardLimit       uint8 = 0x86 // end of travel, not overridable
)

// FaultName returns a human-readable name for a MOVE response error byte.
func FaultName(code uint8) string {
	switch code {
	case ErrNone:
		return "none"
	case ErrSyncError:
		return "sync-error"
	case ErrSoftLimit:
		return "soft-limit"
	case ErrSmartPointUnset:
		return "smart-point-not-set"
	case ErrHardLimit:
		return "hard-limit"
	}
	return "unknown"
}
