// internal/link/keepalive_test.go
package link

import (
	"context"
	"testing"
	"time"

	"github.com/tamzrod/cablerig/internal/protocol"
)

func TestKeepAlive_TransparentReconnectAfterWriteBudget(t *testing.T) {
	tr := &fakeTransport{}
	l := newTestLink(tr, testKey)
	defer l.Disconnect()

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, func() bool { return len(tr.written()) >= 2 }, "keep-alive running")

	// Burn the whole write budget; the loop must reconnect once and carry on.
	tr.mu.Lock()
	tr.failWrites = kaWriteBudget
	tr.mu.Unlock()

	waitFor(t, func() bool {
		connects, _ := tr.stats()
		return connects >= 2
	}, "transparent reconnect")

	waitFor(t, func() bool { return len(tr.written()) >= 3 }, "traffic after reconnect")
	if !l.Connected() {
		t.Fatal("link must stay connected after a successful reconnect")
	}
}

func TestKeepAlive_TerminalDisconnectWhenReconnectFails(t *testing.T) {
	tr := &fakeTransport{}
	l := newTestLink(tr, testKey)
	defer l.Disconnect()

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, func() bool { return len(tr.written()) >= 2 }, "keep-alive running")

	// Every further write and every reopen fails: the link must go down
	// for good, not spin.
	tr.mu.Lock()
	tr.failWrites = 1 << 20
	tr.failOpens = 1 << 20
	tr.mu.Unlock()

	waitFor(t, func() bool { return !l.Connected() }, "terminal disconnect")

	mark := len(tr.written())
	time.Sleep(30 * time.Millisecond)
	if n := len(tr.written()); n != mark {
		t.Fatalf("keep-alive still writing after terminal disconnect")
	}
}

func TestKeepAlive_FasterCadenceWhileMoving(t *testing.T) {
	tr := &fakeTransport{}
	l := newTestLink(tr, testKey)
	l.tm.kaIdle = 40 * time.Millisecond
	l.tm.kaMoving = 2 * time.Millisecond
	defer l.Disconnect()

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	idleStart := len(tr.written())
	time.Sleep(60 * time.Millisecond)
	idleFrames := len(tr.written()) - idleStart

	if err := l.Move(protocol.MoveUp, 50); err != nil {
		t.Fatalf("move: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	movingFrames := len(tr.written()) - idleStart - idleFrames

	if movingFrames <= idleFrames*2 {
		t.Fatalf("moving cadence not faster: idle=%d moving=%d", idleFrames, movingFrames)
	}
}

func TestKeepAlive_TargetStateOnWire(t *testing.T) {
	tr := &fakeTransport{}
	l := newTestLink(tr, testKey)
	defer l.Disconnect()

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	tr.pushMoveResponse(500, protocol.ErrNone)
	waitFor(t, func() bool { return l.State().PositionKnown }, "position sync")

	if err := l.Move(protocol.MoveDown, 60); err != nil {
		t.Fatalf("move: %v", err)
	}

	waitFor(t, func() bool {
		want := protocol.EncodeMove(protocol.MoveDown, 60, 500)
		ws := tr.written()
		for i := len(ws) - 1; i >= 0; i-- {
			if string(ws[i]) == string(want) {
				return true
			}
		}
		return false
	}, "keep-alive frame carrying down/60/500")
}
