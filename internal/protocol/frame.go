// internal/protocol/frame.go
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire format: [command:u8][length:u8][payload: length bytes].
// length always equals len(payload); anything else is a malformed frame.

// ErrMalformedFrame wraps every decode failure in this package.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return "protocol: malformed frame: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedFrameError{Reason: fmt.Sprintf(format, args...)}
}

// Frame is one decoded wire frame.
type Frame struct {
	Command Command
	Payload []byte
}

// Encode builds a wire frame around payload.
func Encode(cmd Command, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	out[0] = byte(cmd)
	out[1] = byte(len(payload))
	copy(out[2:], payload)
	return out
}

// EncodeMove builds a MOVE frame.
// Payload: code:u8, speed:u8 (0-100), avgPos:i32 little-endian.
func EncodeMove(code MoveCode, speed uint8, avgPos int32) []byte {
	payload := make([]byte, 6)
	payload[0] = byte(code)
	payload[1] = speed
	binary.LittleEndian.PutUint32(payload[2:], uint32(avgPos))
	return Encode(CmdMove, payload)
}

// EncodeOverrideMove builds a GO_OVERRIDE frame with the same payload
// layout as MOVE.
func EncodeOverrideMove(code MoveCode, speed uint8, avgPos int32) []byte {
	payload := make([]byte, 6)
	payload[0] = byte(code)
	payload[1] = speed
	binary.LittleEndian.PutUint32(payload[2:], uint32(avgPos))
	return Encode(CmdGoOverride, payload)
}

// EncodeSmartPoint builds a CALIBRATE (set) or CLEAR_CALIBRATION frame.
func EncodeSmartPoint(cmd Command, point SmartPoint) []byte {
	return Encode(cmd, []byte{byte(point)})
}

// Decode splits a raw notification into command and payload.
// The device's length byte must match the remaining byte count exactly.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < 2 {
		return Frame{}, malformed("short frame: %d bytes", len(raw))
	}
	if int(raw[1]) != len(raw)-2 {
		return Frame{}, malformed("length byte %d, payload %d bytes", raw[1], len(raw)-2)
	}
	return Frame{Command: Command(raw[0]), Payload: raw[2:]}, nil
}
