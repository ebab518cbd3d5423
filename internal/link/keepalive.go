// internal/link/keepalive.go
package link

import (
	"context"
	"time"

	"github.com/tamzrod/cablerig/internal/protocol"
)

// kaWriteBudget is the in-place retry streak before the loop attempts one
// transparent reconnect.
const kaWriteBudget = 5

func (l *Link) startKeepAlive() {
	if l.kaCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.kaCancel = cancel
	l.kaDone = make(chan struct{})
	go l.keepAliveLoop(ctx, l.kaDone)
}

// stopKeepAlive cancels the loop and joins it. No orphaned senders survive
// a teardown.
func (l *Link) stopKeepAlive() {
	if l.kaCancel == nil {
		return
	}
	l.kaCancel()
	<-l.kaDone
	l.kaCancel = nil
}

// keepAliveLoop feeds the device watchdog for as long as the link is
// connected. Every frame carries the current target state and the last
// authoritative position; once a real position has been observed, a zero or
// stale default never goes on the wire again.
func (l *Link) keepAliveLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	l.log.Debug("keep-alive loop started")

	failStreak := 0
	reconnected := false

	for l.connected.Load() {
		code, speed := l.target()
		pos := l.st.Load().position

		err := l.writeFrame(protocol.EncodeMove(code, speed, pos))
		if err == nil {
			failStreak = 0
			reconnected = false
		} else {
			failStreak++
			l.log.WithError(err).Warnf("keep-alive write failed (%d/%d)", failStreak, kaWriteBudget)

			if failStreak >= kaWriteBudget {
				if reconnected {
					// Budget spent twice: the link is gone.
					l.connected.Store(false)
					l.armed.Store(false)
					l.log.Error("keep-alive budget exhausted, link is down")
					return
				}
				l.log.Warn("attempting transparent reconnect")
				if rerr := l.reconnect(ctx); rerr != nil {
					l.connected.Store(false)
					l.log.WithError(rerr).Error("reconnect failed, link is down")
					return
				}
				failStreak = 0
				reconnected = true
			}
		}

		interval := l.tm.kaIdle
		if code != protocol.MoveStop {
			interval = l.tm.kaMoving
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (l *Link) target() (protocol.MoveCode, uint8) {
	l.targetMu.Lock()
	defer l.targetMu.Unlock()
	return l.targetCode, l.targetSpeed
}

func (l *Link) setTarget(code protocol.MoveCode, speed uint8) {
	l.targetMu.Lock()
	l.targetCode = code
	l.targetSpeed = speed
	l.targetMu.Unlock()
}
