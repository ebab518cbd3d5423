// internal/link/ble/transport.go
package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// GATT addressing for the winch service. The link never sees these; frames
// go out on the command characteristic and come back on the response one.
const (
	serviceUUIDStr  = "2d88fb13-e261-4eb9-934b-5a4fea3e3b25"
	commandUUIDStr  = "a886c7ec-31ee-48d6-9aa8-35291b21780f"
	responseUUIDStr = "00eff2b2-e420-4d23-9bdd-802af59aeb6f"
)

const connectTimeout = 10 * time.Second

var errNotOpen = errors.New("ble: transport not open")

// Transport implements link.Transport over one BLE peripheral.
type Transport struct {
	adapter *bluetooth.Adapter
	address string

	mu      sync.Mutex
	open    bool
	device  bluetooth.Device
	cmdChar bluetooth.DeviceCharacteristic
	rspChar bluetooth.DeviceCharacteristic
	hasChar bool
	onDrop  func()
}

// New builds a transport for one peripheral MAC address on the shared
// adapter. The adapter must be enabled once by the caller; links connect
// sequentially, never concurrently, to avoid adapter contention.
func New(adapter *bluetooth.Adapter, address string) *Transport {
	return &Transport{adapter: adapter, address: address}
}

// Connect dials the peripheral and resolves the two characteristics.
func (t *Transport) Connect(ctx context.Context, onDrop func()) error {
	mac, err := bluetooth.ParseMAC(t.address)
	if err != nil {
		return fmt.Errorf("ble: bad address %q: %w", t.address, err)
	}
	addr := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	t.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected {
			return
		}
		t.mu.Lock()
		fn := t.onDrop
		wasOpen := t.open
		t.open = false
		t.mu.Unlock()
		if wasOpen && fn != nil {
			fn()
		}
	})

	dev, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(connectTimeout),
	})
	if err != nil {
		return fmt.Errorf("ble: connect %s: %w", t.address, err)
	}

	svcUUID, _ := bluetooth.ParseUUID(serviceUUIDStr)
	cmdUUID, _ := bluetooth.ParseUUID(commandUUIDStr)
	rspUUID, _ := bluetooth.ParseUUID(responseUUIDStr)

	svcs, err := dev.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(svcs) == 0 {
		dev.Disconnect()
		return fmt.Errorf("ble: service discovery %s: %w", t.address, err)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{cmdUUID, rspUUID})
	if err != nil || len(chars) < 2 {
		dev.Disconnect()
		return fmt.Errorf("ble: characteristic discovery %s: %w", t.address, err)
	}

	t.mu.Lock()
	t.device = dev
	t.cmdChar = chars[0]
	t.rspChar = chars[1]
	t.hasChar = true
	t.onDrop = onDrop
	t.open = true
	t.mu.Unlock()
	return nil
}

// Subscribe arms notifications on the response characteristic.
func (t *Transport) Subscribe(onFrame func(data []byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return errNotOpen
	}
	return t.rspChar.EnableNotifications(onFrame)
}

// Write sends one frame on the command characteristic, without response.
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return errNotOpen
	}
	_, err := t.cmdChar.WriteWithoutResponse(data)
	return err
}

// Disconnect tears the connection down. Idempotent.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return nil
	}
	t.open = false
	t.onDrop = nil
	return t.device.Disconnect()
}

// Forget scrubs what this process knows about the peripheral: cached
// characteristic handles and the live connection. The host stack's pairing
// store is not reachable through the adapter API, so a stale entry there
// must be removed with OS tooling.
func (t *Transport) Forget() error {
	t.mu.Lock()
	open := t.open
	t.mu.Unlock()
	if open {
		t.Disconnect()
	}

	t.mu.Lock()
	t.hasChar = false
	t.cmdChar = bluetooth.DeviceCharacteristic{}
	t.rspChar = bluetooth.DeviceCharacteristic{}
	t.mu.Unlock()
	return nil
}
