// internal/protocol/decode_test.go
package protocol

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestDecodeMoveResponse(t *testing.T) {
	// status=1, error=0x81, position=2009 (d9070000), weight=300 (2c01)
	payload, _ := hex.DecodeString("0181d90700002c01")

	r, err := DecodeMoveResponse(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != 1 || r.Error != ErrSoftLimit {
		t.Fatalf("status=%d error=%#x", r.Status, r.Error)
	}
	if r.Position != 2009 {
		t.Fatalf("position: got %d, want 2009", r.Position)
	}
	if r.Weight != 300 {
		t.Fatalf("weight: got %d, want 300", r.Weight)
	}
}

func TestDecodeMoveResponse_NegativePosition(t *testing.T) {
	payload, _ := hex.DecodeString("0000feffffff0000") // position=-2
	r, err := DecodeMoveResponse(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Position != -2 {
		t.Fatalf("position: got %d, want -2", r.Position)
	}
}

func TestDecodeMoveResponse_WrongLength(t *testing.T) {
	var mf *MalformedFrameError
	for _, n := range []int{0, 7, 9} {
		if _, err := DecodeMoveResponse(make([]byte, n)); !errors.As(err, &mf) {
			t.Fatalf("length %d: expected MalformedFrameError, got %v", n, err)
		}
	}
}

func TestDecodeStats(t *testing.T) {
	// cycles=0x00e7, time=0x000007d9, minT=10, maxT=45, resets=3,
	// errCnt=2, classes=bit10|bit16
	payload := make([]byte, 18)
	payload[0] = 0xe7
	payload[2] = 0xd9
	payload[3] = 0x07
	payload[6] = 10
	payload[8] = 45
	payload[10] = 3
	payload[12] = 2
	payload[15] = 0x04 // bit 10
	payload[16] = 0x01 // bit 16

	s, err := DecodeStats(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Cycles != 0xe7 || s.TotalTime != 0x07d9 {
		t.Fatalf("cycles=%d time=%d", s.Cycles, s.TotalTime)
	}
	if s.MinTemp != 10 || s.MaxTemp != 45 || s.Resets != 3 || s.ErrorCount != 2 {
		t.Fatalf("counters: %+v", s)
	}
	if s.ErrorClasses != (1<<10)|(1<<16) {
		t.Fatalf("classes: got %#x", s.ErrorClasses)
	}
}

func TestDecodeStats_Short(t *testing.T) {
	var mf *MalformedFrameError
	if _, err := DecodeStats(make([]byte, 17)); !errors.As(err, &mf) {
		t.Fatalf("expected MalformedFrameError, got %v", err)
	}
}

func TestDecodeVersion(t *testing.T) {
	v, err := DecodeVersion([]byte{4, 1, 2, 0x5A, 0, 7, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.HardwareMajor != 1 || v.HardwareMinor != 4 || v.HardwareVersion != 2 {
		t.Fatalf("hardware: %+v", v)
	}
	if v.FirmwareMajor != 3 || v.FirmwareMinor != 7 || v.FactoryTag != 0x5A {
		t.Fatalf("firmware: %+v", v)
	}
}

func TestDecodeProtocolVersion_Nibbles(t *testing.T) {
	pv, err := DecodeProtocolVersion([]byte{0x12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pv.Major != 1 || pv.Minor != 2 {
		t.Fatalf("got %d.%d, want 1.2", pv.Major, pv.Minor)
	}

	var mf *MalformedFrameError
	if _, err := DecodeProtocolVersion(nil); !errors.As(err, &mf) {
		t.Fatalf("expected MalformedFrameError, got %v", err)
	}
}
