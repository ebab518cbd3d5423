// internal/link/sim/device.go
package sim

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/tamzrod/cablerig/internal/protocol"
)

// Device simulates one winch behind the link.Transport interface. It answers
// every inbound frame the way the hardware does, so link state is fed purely
// through the notification path; nothing is short-circuited.
type Device struct {
	cfg Config

	mu        sync.Mutex
	connected bool
	onFrame   func([]byte)
	onDrop    func()

	position  int32
	errorCode uint8
	moveCode  protocol.MoveCode
	speed     uint8
	lastStep  time.Time

	topLimit    *int32
	bottomLimit *int32
}

// Config sets up one simulated winch.
type Config struct {
	// Passkey is pushed in response to an empty passkey request, as if the
	// pair button had been pressed. A set-passkey write is always accepted.
	Passkey []byte

	// InitialPosition in raw ticks.
	InitialPosition int32

	// TicksPerSecond is the travel rate at speed 100. Defaults to 4000.
	TicksPerSecond float64

	// Soft limits (persisted smart points). Nil means not set.
	TopLimit    *int32
	BottomLimit *int32

	// Hard travel bounds. Nil means unbounded.
	HardMin *int32
	HardMax *int32

	// Weight reported in every move response.
	Weight uint16
}

// New builds a simulated winch.
func New(cfg Config) *Device {
	if cfg.TicksPerSecond <= 0 {
		cfg.TicksPerSecond = 4000
	}
	return &Device{
		cfg:         cfg,
		position:    cfg.InitialPosition,
		topLimit:    cfg.TopLimit,
		bottomLimit: cfg.BottomLimit,
	}
}

// Position returns the simulated raw position.
func (d *Device) Position() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// SetPosition moves the simulated winch instantly, for test setup.
func (d *Device) SetPosition(pos int32) {
	d.mu.Lock()
	d.position = pos
	d.mu.Unlock()
}

// InjectError latches a device error code, reported on the next response.
func (d *Device) InjectError(code uint8) {
	d.mu.Lock()
	d.errorCode = code
	d.mu.Unlock()
}

// DropConnection simulates an unexpected transport drop.
func (d *Device) DropConnection() {
	d.mu.Lock()
	d.connected = false
	fn := d.onDrop
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ---- link.Transport ----

func (d *Device) Connect(ctx context.Context, onDrop func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.onDrop = onDrop
	d.lastStep = time.Now()
	return nil
}

func (d *Device) Subscribe(onFrame func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrame = onFrame
	return nil
}

func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *Device) Forget() error { return nil }

func (d *Device) Write(data []byte) error {
	f, err := protocol.Decode(data)
	if err != nil {
		// Hardware silently drops garbage.
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return context.Canceled
	}

	switch f.Command {
	case protocol.CmdPasskey:
		if len(f.Payload) == 0 {
			// Pairing request: push the key as the button press would.
			d.notify(protocol.Encode(protocol.CmdPasskey, d.cfg.Passkey))
		} else {
			d.notify(protocol.Encode(protocol.CmdAck, []byte{byte(protocol.CmdPasskey)}))
		}

	case protocol.CmdMove, protocol.CmdGoOverride:
		if len(f.Payload) >= 2 {
			d.moveCode = protocol.MoveCode(f.Payload[0])
			d.speed = f.Payload[1]
		}
		d.step()
		d.notify(d.moveResponse())

	case protocol.CmdClearError:
		d.errorCode = protocol.ErrNone

	case protocol.CmdCalibrate:
		if len(f.Payload) >= 1 {
			pos := d.position
			switch protocol.SmartPoint(f.Payload[0]) {
			case protocol.SmartPointTop:
				d.topLimit = &pos
			case protocol.SmartPointBottom:
				d.bottomLimit = &pos
			}
		}

	case protocol.CmdClearCalibration:
		if len(f.Payload) >= 1 {
			switch protocol.SmartPoint(f.Payload[0]) {
			case protocol.SmartPointTop:
				d.topLimit = nil
			case protocol.SmartPointBottom:
				d.bottomLimit = nil
			}
		}

	case protocol.CmdGetStats:
		d.notify(protocol.Encode(protocol.CmdGetStats, make([]byte, 18)))

	case protocol.CmdGetVersion:
		d.notify(protocol.Encode(protocol.CmdGetVersion, []byte{0, 1, 0, 0, 0, 0, 1}))

	case protocol.CmdGetProtocolVersion:
		d.notify(protocol.Encode(protocol.CmdGetProtocolVersion, []byte{0x10}))
	}

	return nil
}

// step integrates travel since the previous frame. Up retracts cable, so
// position decreases; down extends it. Limits clamp and latch error codes
// exactly like the firmware: soft limits respect override codes, hard
// bounds do not.
func (d *Device) step() {
	now := time.Now()
	dt := now.Sub(d.lastStep).Seconds()
	d.lastStep = now

	var dir float64
	override := false
	switch d.moveCode {
	case protocol.MoveUp, protocol.MoveSmartUp:
		dir = -1
	case protocol.MoveDown, protocol.MoveSmartDown:
		dir = 1
	case protocol.MoveOverrideUp:
		dir, override = -1, true
	case protocol.MoveOverrideDown:
		dir, override = 1, true
	default:
		return
	}

	d.position += int32(dir * d.cfg.TicksPerSecond * float64(d.speed) / 100 * dt)

	if !override {
		if d.bottomLimit != nil && d.position > *d.bottomLimit {
			d.position = *d.bottomLimit
			d.errorCode = protocol.ErrSoftLimit
		}
		if d.topLimit != nil && d.position < *d.topLimit {
			d.position = *d.topLimit
			d.errorCode = protocol.ErrSoftLimit
		}
	}
	if d.cfg.HardMax != nil && d.position > *d.cfg.HardMax {
		d.position = *d.cfg.HardMax
		d.errorCode = protocol.ErrHardLimit
	}
	if d.cfg.HardMin != nil && d.position < *d.cfg.HardMin {
		d.position = *d.cfg.HardMin
		d.errorCode = protocol.ErrHardLimit
	}
}

func (d *Device) moveResponse() []byte {
	payload := make([]byte, 8)
	payload[0] = byte(d.moveCode)
	payload[1] = d.errorCode
	binary.LittleEndian.PutUint32(payload[2:6], uint32(d.position))
	binary.LittleEndian.PutUint16(payload[6:8], d.cfg.Weight)
	return protocol.Encode(protocol.CmdMove, payload)
}

// notify delivers asynchronously so the device never blocks the link's
// write path while the link's dispatch queue drains.
func (d *Device) notify(frame []byte) {
	fn := d.onFrame
	if fn == nil {
		return
	}
	go fn(frame)
}
