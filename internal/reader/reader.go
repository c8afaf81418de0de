// internal/reader/reader.go
package reader

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	cfg "github.com/xmcchv/plc-test/internal/config"
	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/poller"
	"github.com/xmcchv/plc-test/internal/registry"
	"github.com/xmcchv/plc-test/internal/status"
	"github.com/xmcchv/plc-test/internal/values"
)

// ErrOverlap is returned by AddBlock when RejectOverlap is set and the new
// range shares bytes with a registered block of the same area.
var ErrOverlap = registry.ErrOverlap

// Options configures a Reader.
type Options struct {
	Poll          poller.Config
	StaleAfter    time.Duration
	RejectOverlap bool
}

// Reader is the polling cache: blocks are registered, refreshed in the
// background and read back as typed values.
//
// The embedded Accessor provides the query API. Plain getters return
// false/0/0.0 for uncovered offsets; Lookup getters return values.ErrNotFound.
type Reader struct {
	*values.Accessor

	addMu sync.Mutex // serializes register + poller admission

	reg  *registry.Registry
	poll *poller.Poller
	log  zerolog.Logger
	opts Options
}

// New builds a Reader over connections produced by factory.
func New(opts Options, factory device.Factory, log zerolog.Logger) (*Reader, error) {
	reg := registry.New(registry.WithStaleAfter(opts.StaleAfter))

	p, err := poller.New(opts.Poll, reg, factory, log)
	if err != nil {
		return nil, err
	}

	return &Reader{
		Accessor: values.NewAccessor(reg),
		reg:      reg,
		poll:     p,
		log:      log,
		opts:     opts,
	}, nil
}

// Build constructs a Reader from validated, normalized config and registers its blocks.
func Build(c cfg.ReaderConfig, log zerolog.Logger) (*Reader, error) {
	factory, err := poller.BuildFactory(c.Source)
	if err != nil {
		return nil, err
	}

	r, err := New(Options{
		Poll:          poller.ConfigFrom(c.Poll),
		StaleAfter:    time.Duration(c.Poll.StaleAfterMs) * time.Millisecond,
		RejectOverlap: true,
	}, factory, log)
	if err != nil {
		return nil, err
	}

	for _, b := range c.Blocks {
		if _, err := r.AddBlock(b.DB, b.Start, b.Size); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

// AddBlock registers the byte range [start, start+size) of area db for polling.
// It may be called before or after Start.
// A block the poller cannot take is rolled back and not counted.
func (r *Reader) AddBlock(db, start, size int) (registry.Handle, error) {
	r.addMu.Lock()
	defer r.addMu.Unlock()

	register := r.reg.Register
	if r.opts.RejectOverlap {
		register = r.reg.RegisterDisjoint
	}

	h, err := register(db, start, size)
	if err != nil {
		return 0, err
	}
	if err := r.poll.Add(h); err != nil {
		if uerr := r.reg.Unregister(h); uerr != nil {
			return 0, multierr.Append(err, uerr)
		}
		return 0, fmt.Errorf("reader: add block db=%d start=%d size=%d: %w", db, start, size, err)
	}

	r.log.Debug().Int("db", db).Int("start", start).Int("size", size).Msg("block registered")
	return h, nil
}

// Start begins background polling.
func (r *Reader) Start() error { return r.poll.Start() }

// Stop halts polling and waits for all workers. Safe to call repeatedly.
func (r *Reader) Stop() error { return r.poll.Stop() }

// Close stops polling and closes every device connection.
func (r *Reader) Close() error { return r.poll.Close() }

// State returns the poller lifecycle state.
func (r *Reader) State() poller.State { return r.poll.State() }

// IsRunning reports whether block index has an active poller.
func (r *Reader) IsRunning(index int) bool {
	if index < 0 || index >= r.reg.Len() {
		return false
	}
	return r.poll.IsRunning(registry.Handle(index))
}

// BlockCount returns the number of registered blocks.
func (r *Reader) BlockCount() int { return r.reg.Len() }

// BlockStatus returns the health snapshot of block index.
// Blocks without an active poller report HealthDisabled.
func (r *Reader) BlockStatus(index int) (status.Snapshot, bool) {
	s, ok := r.reg.Status(registry.Handle(index))
	if !ok {
		return status.Snapshot{}, false
	}
	if !r.poll.IsRunning(registry.Handle(index)) {
		s.Health = status.HealthDisabled
	}
	return s, true
}

// Block returns the registered range of block index.
func (r *Reader) Block(index int) (registry.Range, bool) {
	return r.reg.Range(registry.Handle(index))
}
