// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/registry"
)

// Strategy selects how blocks are mapped onto workers.
type Strategy string

const (
	// StrategyPerBlock runs one worker and one connection per block.
	StrategyPerBlock Strategy = "per_block"

	// StrategyPool runs a fixed number of workers over one shared connection.
	StrategyPool Strategy = "pool"
)

var (
	// ErrInvalidState is returned by Start outside Created/Stopped.
	ErrInvalidState = errors.New("poller: invalid state")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("poller: closed")
)

// State is the lifecycle state of a Poller.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Strategy       Strategy
	Interval       time.Duration
	ReconnectDelay time.Duration

	// Pool only.
	Workers  int
	IdleWait time.Duration
}

// engine is one polling strategy. The Poller serializes calls to add, launch,
// spawn, reset and close under its own lock.
type engine interface {
	add(h registry.Handle) error
	launch(ctx context.Context, g *errgroup.Group)
	spawn(ctx context.Context, g *errgroup.Group, h registry.Handle)
	running(h registry.Handle) bool
	reset()
	close() error
}

// Poller refreshes registered blocks in the background and owns the
// Created -> Running -> Stopping -> Stopped lifecycle.
type Poller struct {
	cfg    Config
	reg    *registry.Registry
	log    zerolog.Logger
	engine engine

	mu     sync.Mutex
	state  State
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
	closed bool
}

// New creates a poller over reg. Blocks already in reg are adopted.
func New(cfg Config, reg *registry.Registry, factory device.Factory, log zerolog.Logger) (*Poller, error) {
	if reg == nil {
		return nil, errors.New("poller: registry required")
	}
	if factory == nil {
		return nil, errors.New("poller: connection factory required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, errors.New("poller: reconnect delay must be > 0")
	}

	p := &Poller{
		cfg: cfg,
		reg: reg,
		log: log.With().Str("strategy", string(cfg.Strategy)).Logger(),
	}

	switch cfg.Strategy {
	case StrategyPerBlock:
		p.engine = newPerBlock(p, factory)
	case StrategyPool:
		if cfg.Workers <= 0 {
			return nil, errors.New("poller: pool workers must be > 0")
		}
		if cfg.IdleWait <= 0 {
			return nil, errors.New("poller: pool idle wait must be > 0")
		}
		conn, err := factory()
		if err != nil {
			return nil, fmt.Errorf("poller: shared connection: %w", err)
		}
		p.engine = newPool(p, device.NewExclusive(conn))
	default:
		return nil, fmt.Errorf("poller: unsupported strategy %q", cfg.Strategy)
	}

	for _, h := range reg.Handles() {
		if err := p.engine.add(h); err != nil {
			_ = p.engine.close()
			return nil, err
		}
	}

	return p, nil
}

// Add puts a registered block under polling. While running it is polled immediately.
func (p *Poller) Add(h registry.Handle) error {
	if _, ok := p.reg.Range(h); !ok {
		return fmt.Errorf("%w: %d", registry.ErrUnknownHandle, h)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.engine.add(h); err != nil {
		return err
	}
	if p.state == StateRunning {
		p.engine.spawn(p.ctx, p.group, h)
	}
	return nil
}

// Start spawns the workers. Valid from Created and Stopped.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.state != StateCreated && p.state != StateStopped {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, p.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p.ctx = gctx
	p.cancel = cancel
	p.group = g
	p.done = make(chan struct{})

	p.engine.launch(gctx, g)
	p.state = StateRunning

	p.log.Info().Int("blocks", p.reg.Len()).Msg("poller started")
	return nil
}

// Stop cancels all workers and waits for them to exit.
// Calling Stop when not running is a no-op; a concurrent Stop waits for the first.
func (p *Poller) Stop() error {
	p.mu.Lock()
	switch p.state {
	case StateRunning:
	case StateStopping:
		done := p.done
		p.mu.Unlock()
		<-done
		return nil
	default:
		p.mu.Unlock()
		return nil
	}

	p.state = StateStopping
	cancel, g, done := p.cancel, p.group, p.done
	p.mu.Unlock()

	cancel()
	err := g.Wait()

	p.mu.Lock()
	p.engine.reset()
	p.ctx, p.cancel, p.group = nil, nil, nil
	p.state = StateStopped
	close(done)
	p.mu.Unlock()

	p.log.Info().Msg("poller stopped")
	return err
}

// Close stops the poller and closes every connection exactly once.
func (p *Poller) Close() error {
	stopErr := p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return stopErr
	}
	p.closed = true
	return multierr.Combine(stopErr, p.engine.close())
}

// State returns the lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsRunning reports whether a worker currently serves block h.
func (p *Poller) IsRunning(h registry.Handle) bool {
	return p.engine.running(h)
}

// wait blocks for d or until ctx is done. It reports whether the full wait elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
