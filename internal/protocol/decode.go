// internal/protocol/decode.go
package protocol

import "encoding/binary"

// Response decoders take the frame PAYLOAD (command and length bytes already
// stripped). Each decoder either returns a fully-populated struct or a
// MalformedFrameError; it never returns partial data.

// MoveResponse is the device's answer to a MOVE frame and the only
// authoritative source of position and weight.
type MoveResponse struct {
	Status   uint8
	Error    uint8
	Position int32
	Weight   uint16
}

const moveResponseLen = 8

// DecodeMoveResponse parses status:u8, error:u8, position:i32 LE, weight:u16 LE.
func DecodeMoveResponse(payload []byte) (MoveResponse, error) {
	if len(payload) != moveResponseLen {
		return MoveResponse{}, malformed("move response length %d, expected %d", len(payload), moveResponseLen)
	}
	return MoveResponse{
		Status:   payload[0],
		Error:    payload[1],
		Position: int32(binary.LittleEndian.Uint32(payload[2:6])),
		Weight:   binary.LittleEndian.Uint16(payload[6:8]),
	}, nil
}

// Stats are the device's lifetime counters.
type Stats struct {
	Cycles       uint16
	TotalTime    uint32
	MinTemp      uint16
	MaxTemp      uint16
	Resets       uint16
	ErrorCount   uint16
	ErrorClasses uint32 // bitmask; bit 10 sync timeout, bit 16 voltage low
}

const statsLen = 18

// DecodeStats parses the fixed 18-byte GET_STATS payload, little-endian.
func DecodeStats(payload []byte) (Stats, error) {
	if len(payload) < statsLen {
		return Stats{}, malformed("stats length %d, expected %d", len(payload), statsLen)
	}
	return Stats{
		Cycles:       binary.LittleEndian.Uint16(payload[0:2]),
		TotalTime:    binary.LittleEndian.Uint32(payload[2:6]),
		MinTemp:      binary.LittleEndian.Uint16(payload[6:8]),
		MaxTemp:      binary.LittleEndian.Uint16(payload[8:10]),
		Resets:       binary.LittleEndian.Uint16(payload[10:12]),
		ErrorCount:   binary.LittleEndian.Uint16(payload[12:14]),
		ErrorClasses: binary.LittleEndian.Uint32(payload[14:18]),
	}, nil
}

// Version identifies hardware and firmware revisions.
type Version struct {
	HardwareMinor   uint8
	HardwareMajor   uint8
	HardwareVersion uint8
	FactoryTag      uint8
	FirmwareMinor   uint8
	FirmwareMajor   uint8
}

const versionLen = 7

// DecodeVersion parses the fixed GET_VERSION payload:
// hw minor, hw major, hw version, factory tag, reserved, fw minor, fw major.
func DecodeVersion(payload []byte) (Version, error) {
	if len(payload) < versionLen {
		return Version{}, malformed("version length %d, expected %d", len(payload), versionLen)
	}
	return Version{
		HardwareMinor:   payload[0],
		HardwareMajor:   payload[1],
		HardwareVersion: payload[2],
		FactoryTag:      payload[3],
		FirmwareMinor:   payload[5],
		FirmwareMajor:   payload[6],
	}, nil
}

// ProtocolVersion is nibble-encoded major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// DecodeProtocolVersion parses the single nibble-encoded byte.
func DecodeProtocolVersion(payload []byte) (ProtocolVersion, error) {
	if len(payload) < 1 {
		return ProtocolVersion{}, malformed("protocol version payload empty")
	}
	return ProtocolVersion{Major: payload[0] >> 4, Minor: payload[0] & 0x0F}, nil
}
