// internal/poller/perblock.go
package poller

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/registry"
)

// blockWorker is one block, its own connection and its running flag.
type blockWorker struct {
	h       registry.Handle
	conn    device.Conn
	running atomic.Bool
}

// perBlock gives every block a dedicated goroutine and connection.
// Reads run fully in parallel at the cost of N sessions to the same device.
type perBlock struct {
	p       *Poller
	factory device.Factory

	mu      sync.Mutex
	order   []*blockWorker
	workers map[registry.Handle]*blockWorker
}

func newPerBlock(p *Poller, factory device.Factory) *perBlock {
	return &perBlock{
		p:       p,
		factory: factory,
		workers: make(map[registry.Handle]*blockWorker),
	}
}

// add builds the block's connection. Connecting happens in the worker.
func (e *perBlock) add(h registry.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.workers[h]; ok {
		return nil
	}

	conn, err := e.factory()
	if err != nil {
		return fmt.Errorf("poller: connection for block %d: %w", h, err)
	}

	w := &blockWorker{h: h, conn: conn}
	e.order = append(e.order, w)
	e.workers[h] = w
	return nil
}

func (e *perBlock) launch(ctx context.Context, g *errgroup.Group) {
	e.mu.Lock()
	workers := append([]*blockWorker(nil), e.order...)
	e.mu.Unlock()

	for _, w := range workers {
		e.start(ctx, g, w)
	}
}

func (e *perBlock) spawn(ctx context.Context, g *errgroup.Group, h registry.Handle) {
	e.mu.Lock()
	w := e.workers[h]
	e.mu.Unlock()

	if w != nil {
		e.start(ctx, g, w)
	}
}

func (e *perBlock) start(ctx context.Context, g *errgroup.Group, w *blockWorker) {
	w.running.Store(true)
	g.Go(func() error {
		defer w.running.Store(false)
		e.loop(ctx, w)
		return nil
	})
}

// loop runs poll cycles until ctx is cancelled.
func (e *perBlock) loop(ctx context.Context, w *blockWorker) {
	rng, _ := e.p.reg.Range(w.h)
	log := blockLogger(e.p.log, rng)
	log.Debug().Msg("block poller started")

	for {
		buf, err := read(ctx, w.conn, rng)
		err = e.p.commit(w.h, rng, buf, err, log)

		if !wait(ctx, e.p.delayAfter(err)) {
			break
		}
	}

	log.Info().Msgf("poller for block db=%d start=%d exiting", rng.DB, rng.Start)
}

func (e *perBlock) running(h registry.Handle) bool {
	e.mu.Lock()
	w := e.workers[h]
	e.mu.Unlock()

	return w != nil && w.running.Load()
}

// reset has nothing to clear: running flags drop as each goroutine exits.
func (e *perBlock) reset() {}

func (e *perBlock) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	for _, w := range e.order {
		err = multierr.Append(err, w.conn.Close())
	}
	return err
}
