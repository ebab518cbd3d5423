// internal/statusexport/exporter.go
package statusexport

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/link"
)

// Source supplies the per-winch snapshots to publish. *rig.Coordinator
// satisfies it.
type Source interface {
	Status() map[geo.WinchID]link.Snapshot
}

// Exporter periodically publishes each winch's status block into a
// Modbus register memory. Each winch owns a fixed SlotsPerWinch block at
// base + (id-1)*SlotsPerWinch. A block is rewritten only when its content
// changed; any write failure re-asserts the full block on the next tick.
type Exporter struct {
	src  Source
	cli  RegisterClient
	base uint16
	log  *logrus.Entry

	last map[geo.WinchID][]uint16
}

func New(src Source, cli RegisterClient, base uint16, log *logrus.Logger) *Exporter {
	return &Exporter{
		src:  src,
		cli:  cli,
		base: base,
		log:  log.WithField("component", "statusexport"),
		last: make(map[geo.WinchID][]uint16),
	}
}

// Run publishes on every tick until ctx is canceled. The first tick writes
// every block unconditionally.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	e.Publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Publish()
		}
	}
}

// Publish writes one round of status blocks. Failures are logged and leave
// the block marked dirty; they never stop the exporter.
func (e *Exporter) Publish() {
	for id, snap := range e.src.Status() {
		regs := Encode(snap)
		if regsEqual(e.last[id], regs) {
			continue
		}

		addr := e.base + uint16(int(id)-1)*SlotsPerWinch
		if err := e.cli.WriteRegisters(addr, regs); err != nil {
			e.log.WithError(err).Warnf("winch %d status write failed", id)
			delete(e.last, id)
			continue
		}
		e.last[id] = regs
	}
}

func regsEqual(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
