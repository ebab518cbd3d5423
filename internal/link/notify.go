// internal/link/notify.go
package link

import (
	"github.com/tamzrod/cablerig/internal/protocol"
)

// enqueueFrame runs on the transport's delivery path and must not block:
// it hands the raw frame to the dispatch goroutine and drops on overflow.
func (l *Link) enqueueFrame(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case l.frames <- buf:
	default:
		l.log.Warn("notification queue full, frame dropped")
	}
}

func (l *Link) startDispatch() {
	l.dispatchQuit = make(chan struct{})
	l.dispatchDone = make(chan struct{})
	go l.dispatchLoop(l.dispatchQuit, l.dispatchDone)
}

func (l *Link) stopDispatch() {
	if l.dispatchQuit == nil {
		return
	}
	close(l.dispatchQuit)
	<-l.dispatchDone
	l.dispatchQuit = nil
}

// dispatchLoop decodes inbound frames and routes them. It is the only
// writer of the device state cell.
func (l *Link) dispatchLoop(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case raw := <-l.frames:
			l.handleFrame(raw)
		}
	}
}

func (l *Link) handleFrame(raw []byte) {
	f, err := protocol.Decode(raw)
	if err != nil {
		// Malformed frames are dropped without touching state.
		l.log.WithError(err).Warnf("dropping frame %x", raw)
		return
	}

	switch f.Command {
	case protocol.CmdMove:
		l.handleMoveResponse(f.Payload)

	case protocol.CmdPasskey:
		// Device-initiated passkey push during pairing.
		if len(f.Payload) < 6 {
			l.log.Warnf("short passkey push: %x", f.Payload)
			return
		}
		key := make([]byte, 6)
		copy(key, f.Payload)
		select {
		case l.passkeyCh <- key:
		default:
		}

	case protocol.CmdAck:
		if len(f.Payload) >= 1 && protocol.Command(f.Payload[0]) == protocol.CmdPasskey {
			l.log.Debug("auth acknowledged")
		}

	case protocol.CmdNack:
		l.log.Warnf("device NACK: %x", f.Payload)

	case protocol.CmdGetStats, protocol.CmdGetVersion, protocol.CmdGetProtocolVersion:
		l.completePending(f.Command, f.Payload)

	default:
		l.log.Debugf("unhandled notification %#x", f.Command)
	}
}

// handleMoveResponse applies the only authoritative position/weight source.
func (l *Link) handleMoveResponse(payload []byte) {
	r, err := protocol.DecodeMoveResponse(payload)
	if err != nil {
		l.log.WithError(err).Warn("dropping move response")
		return
	}

	prev := l.st.Load()
	next := &deviceState{
		positionKnown: true,
		position:      r.Position,
		weight:        r.Weight,
		errorCode:     r.Error,
		syncErrors:    prev.syncErrors,
	}
	if r.Error == protocol.ErrSyncError {
		next.syncErrors++
	}
	l.st.Store(next)
	l.firstPosOnce.Do(func() { close(l.firstPos) })

	// Log error transitions once; repeats are suppressed.
	if int16(r.Error) != l.lastLoggedError {
		l.lastLoggedError = int16(r.Error)
		switch r.Error {
		case protocol.ErrNone:
			// recovery, stay quiet
		case protocol.ErrSyncError:
			// Warning only: no resync, no abort. Unresolved fault class.
			l.log.Warnf("device reports %s (position %d)", protocol.FaultName(r.Error), r.Position)
		default:
			l.log.Errorf("device reports %s (%#x)", protocol.FaultName(r.Error), r.Error)
		}
	}
}

// completePending resolves the matching single-shot request, if any.
func (l *Link) completePending(cmd protocol.Command, payload []byte) {
	l.pendMu.Lock()
	ch, ok := l.pending[cmd]
	if ok {
		delete(l.pending, cmd)
	}
	l.pendMu.Unlock()

	if !ok {
		l.log.Debugf("unsolicited response for %#x", cmd)
		return
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	ch <- buf
}
