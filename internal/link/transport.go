// internal/link/transport.go
package link

import (
	"context"
	"errors"
)

// Transport is the wire beneath one link. Real hardware speaks BLE
// (internal/link/ble); tests and offline runs use the simulator
// (internal/link/sim). The link consumes exactly these five operations and
// treats channel addressing as the transport's own business.
type Transport interface {
	// Connect opens the transport. onDrop fires from the transport's
	// delivery context on an unexpected disconnect; it must not block.
	Connect(ctx context.Context, onDrop func()) error

	// Subscribe arms the notification stream. onFrame receives raw frames
	// and must not block.
	Subscribe(onFrame func(data []byte)) error

	// Write sends one raw frame (write-without-response semantics).
	Write(data []byte) error

	// Disconnect closes the transport. Idempotent.
	Disconnect() error

	// Forget scrubs cached device identity from the adapter so the next
	// Connect starts from a clean slate.
	Forget() error
}

// ---- FAULT SENTINELS ----

var (
	// ErrNotConnected is returned by operations that require a live link.
	ErrNotConnected = errors.New("link: not connected")

	// ErrRequestTimeout means a single-shot query got no response in time.
	ErrRequestTimeout = errors.New("link: request timed out")

	// ErrPairingTimeout means no passkey push arrived; the button on the
	// winch was probably never pressed.
	ErrPairingTimeout = errors.New("link: timed out waiting for passkey push")

	// ErrRequestPending means a query for the same command is already in
	// flight; responses carry no correlation id beyond the command byte.
	ErrRequestPending = errors.New("link: request already pending for command")
)
