// internal/link/link.go
package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/cablerig/internal/protocol"
)

// ---- TIMING ----

// connectAttempts bounds transport open retries before the adapter identity
// is scrubbed and one last attempt is made.
const connectAttempts = 3

// timings collects every bounded wait in the link. Defaults are production
// values; tests shrink them.
type timings struct {
	// retryDelay spaces transport open retries.
	retryDelay time.Duration

	// pairTimeout bounds the wait for a device-initiated passkey push
	// (requires a physical button press on the winch).
	pairTimeout time.Duration

	// firstPosWait bounds the wait for the first authoritative MOVE
	// response after authentication. Falling back to position 0 risks a
	// device-side sync error on first move, hence the warning.
	firstPosWait time.Duration

	// requestTimeout bounds every single-shot query.
	requestTimeout time.Duration

	// Keep-alive cadence. The device watchdog faults the link after a few
	// hundred milliseconds of silence; send fast while moving, slower idle.
	kaMoving time.Duration
	kaIdle   time.Duration
}

func defaultTimings() timings {
	return timings{
		retryDelay:     500 * time.Millisecond,
		pairTimeout:    30 * time.Second,
		firstPosWait:   2 * time.Second,
		requestTimeout: 3 * time.Second,
		kaMoving:       100 * time.Millisecond,
		kaIdle:         250 * time.Millisecond,
	}
}

// Config describes one winch link.
type Config struct {
	ID      int
	Address string
	Passkey []byte // 6 bytes when already paired, nil to pair on connect
	Cal     Calibration
}

// Link is the protocol client for one winch. One Link owns one Transport,
// one dispatch goroutine and (while connected) one keep-alive goroutine.
type Link struct {
	id  int
	tr  Transport
	cal Calibration
	log *logrus.Entry
	tm  timings

	// writeMu keeps transport writes mutually exclusive in time so
	// single-shot responses correlate with their request.
	writeMu sync.Mutex

	// st is written only by the dispatch goroutine.
	st        atomic.Pointer[deviceState]
	connected atomic.Bool

	// armed gates the transport's drop callback: false during an
	// intentional connect/reconnect cycle, true once Ready.
	armed atomic.Bool

	// target state, read each keep-alive cycle.
	targetMu    sync.Mutex
	targetCode  protocol.MoveCode
	targetSpeed uint8
	passkey     []byte

	frames    chan []byte
	passkeyCh chan []byte

	pendMu  sync.Mutex
	pending map[protocol.Command]chan []byte

	kaCancel context.CancelFunc
	kaDone   chan struct{}

	dispatchQuit chan struct{}
	dispatchDone chan struct{}

	lastLoggedError int16
	firstPosOnce    sync.Once
	firstPos        chan struct{}
}

// New builds a disconnected link over tr.
func New(cfg Config, tr Transport, log *logrus.Logger) *Link {
	l := &Link{
		id:              cfg.ID,
		tr:              tr,
		cal:             cfg.Cal,
		tm:              defaultTimings(),
		log:             log.WithField("winch", cfg.ID),
		passkey:         cfg.Passkey,
		frames:          make(chan []byte, 32),
		passkeyCh:       make(chan []byte, 1),
		pending:         make(map[protocol.Command]chan []byte),
		firstPos:        make(chan struct{}),
		lastLoggedError: -1,
	}
	l.st.Store(&deviceState{})
	return l
}

// ID returns the winch id this link drives.
func (l *Link) ID() int { return l.id }

// Calibration returns the tick-to-centimeter calibration.
func (l *Link) Calibration() Calibration { return l.cal }

// Connected reports whether the link is Ready.
func (l *Link) Connected() bool { return l.connected.Load() }

// State returns a lock-free snapshot, latest notification wins.
func (l *Link) State() Snapshot {
	st := l.st.Load()
	return Snapshot{
		Connected:     l.connected.Load(),
		PositionKnown: st.positionKnown,
		Position:      st.position,
		Weight:        st.weight,
		ErrorCode:     st.errorCode,
		SyncErrors:    st.syncErrors,
	}
}

// Distance returns the current cable length in centimeters, and whether a
// real position backs it.
func (l *Link) Distance() (float64, bool) {
	s := l.State()
	return s.Distance(l.cal), s.PositionKnown
}

// Connect opens the transport, authenticates and brings the link to Ready
// with the keep-alive loop running. The drop callback stays suppressed for
// the whole cycle and is armed last.
func (l *Link) Connect(ctx context.Context) error {
	if l.connected.Load() {
		return nil
	}
	l.armed.Store(false)

	// A dead keep-alive loop or dispatcher from a dropped session leaves its
	// handles behind; clear them so the rebuild starts from scratch.
	l.teardown()

	if err := l.openTransport(ctx); err != nil {
		return fmt.Errorf("link %d: connect: %w", l.id, err)
	}

	if err := l.tr.Subscribe(l.enqueueFrame); err != nil {
		l.tr.Disconnect()
		return fmt.Errorf("link %d: subscribe: %w", l.id, err)
	}

	l.startDispatch()
	l.connected.Store(true)

	if err := l.authenticate(ctx); err != nil {
		l.teardown()
		return fmt.Errorf("link %d: %w", l.id, err)
	}

	l.awaitFirstPosition(ctx)
	l.armed.Store(true)
	l.log.Info("link ready")
	return nil
}

// openTransport retries a bounded number of times, then scrubs the adapter's
// cached identity once and tries one final time.
func (l *Link) openTransport(ctx context.Context) error {
	var err error
	for i := 0; i < connectAttempts; i++ {
		if err = l.tr.Connect(ctx, l.onDrop); err == nil {
			return nil
		}
		l.log.WithError(err).Warnf("transport open failed (attempt %d/%d)", i+1, connectAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.tm.retryDelay):
		}
	}

	l.log.Warn("scrubbing cached device identity and retrying once")
	if ferr := l.tr.Forget(); ferr != nil {
		l.log.WithError(ferr).Warn("identity scrub failed")
	}
	if err = l.tr.Connect(ctx, l.onDrop); err != nil {
		return err
	}
	return nil
}

// authenticate runs the passkey handshake. With a known key the keep-alive
// loop starts the moment SET_PASSKEY is on the wire: the device enforces an
// inactivity watchdog from first contact, so nothing else may go out first.
func (l *Link) authenticate(ctx context.Context) error {
	l.targetMu.Lock()
	key := l.passkey
	l.targetMu.Unlock()

	if key != nil {
		if err := l.writeFrame(protocol.Encode(protocol.CmdPasskey, key)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		l.startKeepAlive()
		return nil
	}

	// Pairing: ask for the key, then wait for the push triggered by the
	// button press on the winch.
	if err := l.writeFrame(protocol.Encode(protocol.CmdPasskey, nil)); err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	l.log.Info("waiting for passkey push, press the pair button on the winch")

	select {
	case key = <-l.passkeyCh:
	case <-time.After(l.tm.pairTimeout):
		return ErrPairingTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	l.targetMu.Lock()
	l.passkey = key
	l.targetMu.Unlock()
	l.log.Info("passkey received, authenticating")

	if err := l.writeFrame(protocol.Encode(protocol.CmdPasskey, key)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	l.startKeepAlive()
	return nil
}

// Passkey returns the key in use, present after a successful pairing.
func (l *Link) Passkey() []byte {
	l.targetMu.Lock()
	defer l.targetMu.Unlock()
	return l.passkey
}

// awaitFirstPosition waits briefly for the first authoritative MOVE response.
// On timeout the keep-alive loop echoes 0 on the wire (the state cell's zero
// value) but the snapshot keeps PositionKnown=false: 0 is a guess until the
// device confirms it, and a wrong guess can induce a device-side sync error
// on the first real move.
func (l *Link) awaitFirstPosition(ctx context.Context) {
	select {
	case <-l.firstPos:
	case <-ctx.Done():
	case <-time.After(l.tm.firstPosWait):
		l.log.Warn("no position frame after auth, echoing 0 until one arrives")
	}
}

// Disconnect cancels the keep-alive loop, joins it, stops dispatch and
// closes the transport. Idempotent.
func (l *Link) Disconnect() error {
	wasReady := l.connected.Swap(false)
	l.armed.Store(false)
	l.teardown()
	if wasReady {
		l.log.Info("disconnected")
	}
	return nil
}

func (l *Link) teardown() {
	l.connected.Store(false)
	l.stopKeepAlive()
	l.stopDispatch()
	if err := l.tr.Disconnect(); err != nil {
		l.log.WithError(err).Warn("transport close failed")
	}
}

// onDrop runs on the transport's delivery context. While a connect or
// reconnect cycle is in progress it stays silent; armed only once Ready.
func (l *Link) onDrop() {
	if !l.armed.Load() {
		return
	}
	l.connected.Store(false)
	l.log.Error("unexpected transport disconnect")
}

// reconnect is the keep-alive loop's one transparent recovery attempt after
// its write-failure budget is spent.
func (l *Link) reconnect(ctx context.Context) error {
	l.armed.Store(false)
	l.tr.Disconnect()

	if err := l.tr.Connect(ctx, l.onDrop); err != nil {
		return err
	}
	if err := l.tr.Subscribe(l.enqueueFrame); err != nil {
		l.tr.Disconnect()
		return err
	}

	l.targetMu.Lock()
	key := l.passkey
	l.targetMu.Unlock()
	if key != nil {
		if err := l.writeFrame(protocol.Encode(protocol.CmdPasskey, key)); err != nil {
			return err
		}
	}

	l.connected.Store(true)
	l.armed.Store(true)
	return nil
}

// writeFrame is the single write path; all transport writes serialize here.
func (l *Link) writeFrame(data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.tr.Write(data)
}
