// internal/poller/pool.go
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/registry"
)

// slot is the scheduling state of one block.
// A block is due when it is not in flight and due <= now.
type slot struct {
	h        registry.Handle
	due      time.Time
	inFlight bool
}

// pool runs a fixed number of workers over the shared block set.
// Device access is serialized through one shared connection.
type pool struct {
	p      *Poller
	shared *device.Exclusive

	mu          sync.Mutex
	slots       []*slot
	index       map[registry.Handle]struct{}
	pausedUntil time.Time
	wake        chan struct{}
	active      int
}

func newPool(p *Poller, shared *device.Exclusive) *pool {
	return &pool{
		p:      p,
		shared: shared,
		index:  make(map[registry.Handle]struct{}),
		wake:   make(chan struct{}),
	}
}

// add makes h due immediately and wakes idle workers.
func (e *pool) add(h registry.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[h]; ok {
		return nil
	}
	e.index[h] = struct{}{}
	e.slots = append(e.slots, &slot{h: h})
	e.broadcastLocked()
	return nil
}

func (e *pool) launch(ctx context.Context, g *errgroup.Group) {
	e.mu.Lock()
	e.active += e.p.cfg.Workers
	e.mu.Unlock()

	for i := 0; i < e.p.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			defer e.exit()
			e.work(ctx, id)
			return nil
		})
	}
}

// spawn is a no-op: add already woke the workers.
func (e *pool) spawn(context.Context, *errgroup.Group, registry.Handle) {}

func (e *pool) work(ctx context.Context, id int) {
	log := e.p.log.With().Int("worker", id).Logger()
	log.Debug().Msg("pool worker started")

	for {
		s, ok := e.next(ctx)
		if !ok {
			break
		}

		rng, _ := e.p.reg.Range(s.h)
		blog := blockLogger(log, rng)

		var buf []byte
		err := e.shared.Use(ctx, func(c device.Conn) error {
			var rerr error
			buf, rerr = read(ctx, c, rng)
			return rerr
		})
		err = e.p.commit(s.h, rng, buf, err, blog)

		e.done(s, err)
	}

	log.Info().Msg("pool worker exiting")
}

// next claims the longest-overdue block.
// With nothing due it waits for a broadcast, the earliest due time, or IdleWait.
func (e *pool) next(ctx context.Context) (*slot, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}

		e.mu.Lock()
		s, d := e.pickLocked(time.Now())
		if s != nil {
			s.inFlight = true
			e.mu.Unlock()
			return s, true
		}
		wake := e.wake
		e.mu.Unlock()

		if d <= 0 || d > e.p.cfg.IdleWait {
			d = e.p.cfg.IdleWait
		}

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false
		case <-wake:
		case <-t.C:
		}
		t.Stop()
	}
}

// pickLocked returns the free slot that has been due the longest, or how long
// until the earliest one falls due. Ties go to registration order, so a slow
// device still cycles through every block.
func (e *pool) pickLocked(now time.Time) (*slot, time.Duration) {
	if now.Before(e.pausedUntil) {
		return nil, e.pausedUntil.Sub(now)
	}

	var best *slot
	for _, s := range e.slots {
		if s.inFlight {
			continue
		}
		if best == nil || s.due.Before(best.due) {
			best = s
		}
	}

	if best == nil {
		return nil, 0
	}
	if best.due.After(now) {
		return nil, best.due.Sub(now)
	}
	return best, 0
}

// done releases s, schedules its next cycle and notifies all waiters.
// A connection failure pauses the whole pool for ReconnectDelay.
func (e *pool) done(s *slot, err error) {
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	s.inFlight = false
	if errors.Is(err, device.ErrNotConnected) {
		e.pausedUntil = now.Add(e.p.cfg.ReconnectDelay)
	}
	s.due = now.Add(e.p.delayAfter(err))
	e.broadcastLocked()
}

func (e *pool) broadcastLocked() {
	close(e.wake)
	e.wake = make(chan struct{})
}

func (e *pool) exit() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

// running reports whether workers are live and h is part of the block set.
func (e *pool) running(h registry.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.index[h]
	return ok && e.active > 0
}

// reset clears per-run scheduling state so a restart polls everything immediately.
func (e *pool) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.slots {
		s.inFlight = false
		s.due = time.Time{}
	}
	e.pausedUntil = time.Time{}
}

func (e *pool) close() error {
	return e.shared.Close()
}
