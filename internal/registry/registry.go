// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/status"
)

var (
	// ErrInvalidRange is returned for registrations with start < 0 or length <= 0.
	ErrInvalidRange = errors.New("registry: invalid block range")

	// ErrLengthMismatch is returned when a published buffer does not match the block length.
	ErrLengthMismatch = errors.New("registry: buffer length mismatch")

	// ErrUnknownHandle is returned for handles that were never registered.
	ErrUnknownHandle = errors.New("registry: unknown block handle")

	// ErrOverlap is returned by RegisterDisjoint when the range shares bytes with a registered block.
	ErrOverlap = errors.New("registry: block overlaps a registered block")

	// ErrNotNewest is returned by Unregister for any handle but the newest.
	ErrNotNewest = errors.New("registry: only the newest block can be removed")
)

// Handle addresses one registered block. It is the registration index.
type Handle int

// Range is the identity of a block.
// Geometry only: no semantics.
type Range struct {
	DB     int
	Start  int
	Length int
}

// End returns the first byte offset past the range.
func (r Range) End() int { return r.Start + r.Length }

// Contains reports whether [offset, offset+width) lies inside r for area db.
// offset+width is never computed, so huge offsets cannot wrap into range.
func (r Range) Contains(db, offset, width int) bool {
	return r.DB == db && offset >= r.Start && width >= 0 && width <= r.End()-offset
}

// Overlaps reports whether two ranges of the same area share a byte.
func (r Range) Overlaps(o Range) bool {
	return r.DB == o.DB && r.Start < o.End() && o.Start < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("db=%d start=%d size=%d", r.DB, r.Start, r.Length)
}

type block struct {
	rng     Range
	buf     []byte
	tracker status.Tracker
}

// Registry owns the registered blocks and their latest buffers.
// One lock guards the collection; buffers are replaced, never mutated in place.
type Registry struct {
	mu         sync.RWMutex
	blocks     []*block
	staleAfter time.Duration
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithStaleAfter marks blocks stale when their last success is older than d.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Registry) { r.staleAfter = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a block with a zero-filled buffer.
// Duplicate and overlapping ranges are accepted; the first registered block answers lookups.
func (r *Registry) Register(db, start, length int) (Handle, error) {
	if length <= 0 || start < 0 || length > math.MaxInt-start {
		return 0, fmt.Errorf("%w: db=%d start=%d size=%d", ErrInvalidRange, db, start, length)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(db, start, length), nil
}

// RegisterDisjoint is Register that fails with ErrOverlap instead of accepting
// an overlapping range. The check and the insert happen under one lock.
func (r *Registry) RegisterDisjoint(db, start, length int) (Handle, error) {
	if length <= 0 || start < 0 || length > math.MaxInt-start {
		return 0, fmt.Errorf("%w: db=%d start=%d size=%d", ErrInvalidRange, db, start, length)
	}
	cand := Range{DB: db, Start: start, Length: length}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.blocks {
		if b.rng.Overlaps(cand) {
			return 0, fmt.Errorf("%w: %s overlaps %s", ErrOverlap, cand, b.rng)
		}
	}
	return r.appendLocked(db, start, length), nil
}

// Unregister removes h if it is the newest block. It exists to roll back a
// registration whose poller admission failed; other handles stay stable.
func (r *Registry) Unregister(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookupLocked(h); err != nil {
		return err
	}
	if int(h) != len(r.blocks)-1 {
		return fmt.Errorf("%w: %d", ErrNotNewest, h)
	}
	r.blocks[h] = nil
	r.blocks = r.blocks[:h]
	return nil
}

func (r *Registry) appendLocked(db, start, length int) Handle {
	r.blocks = append(r.blocks, &block{
		rng: Range{DB: db, Start: start, Length: length},
		buf: make([]byte, length),
	})
	return Handle(len(r.blocks) - 1)
}

// Overlaps reports the first registered block sharing a byte with the candidate range.
func (r *Registry) Overlaps(db, start, length int) (Range, bool) {
	cand := Range{DB: db, Start: start, Length: length}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.blocks {
		if b.rng.Overlaps(cand) {
			return b.rng, true
		}
	}
	return Range{}, false
}

// View calls fn with the bytes of the first block covering [offset, offset+width)
// of area db. The slice starts at offset and is only valid inside fn; fn must not modify it.
// It returns false if no block covers the range.
func (r *Registry) View(db, offset, width int, fn func(b []byte)) bool {
	if width <= 0 {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.blocks {
		if b.rng.Contains(db, offset, width) {
			rel := offset - b.rng.Start
			fn(b.buf[rel : rel+width : rel+width])
			return true
		}
	}
	return false
}

// Publish replaces the buffer of h with data in one locked assignment.
// Ownership of data passes to the registry.
func (r *Registry) Publish(h Handle, data []byte) error {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.lookupLocked(h)
	if err != nil {
		return err
	}
	if len(data) != b.rng.Length {
		return fmt.Errorf("%w: %s got=%d", ErrLengthMismatch, b.rng, len(data))
	}

	b.buf = data
	b.tracker.Success(now)
	return nil
}

// Fail records a failed poll cycle for h. The buffer keeps the last good bytes.
func (r *Registry) Fail(h Handle, cause error) error {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.lookupLocked(h)
	if err != nil {
		return err
	}
	b.tracker.Failure(now, device.ErrorCode(cause), device.ErrorText(cause))
	return nil
}

// Range returns the identity of h.
func (r *Registry) Range(h Handle) (Range, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := r.lookupLocked(h)
	if err != nil {
		return Range{}, false
	}
	return b.rng, true
}

// Epoch returns the number of successful publications for h.
func (r *Registry) Epoch(h Handle) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := r.lookupLocked(h)
	if err != nil {
		return 0
	}
	return b.tracker.Epoch()
}

// Status evaluates the state of h now.
func (r *Registry) Status(h Handle) (status.Snapshot, bool) {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := r.lookupLocked(h)
	if err != nil {
		return status.Snapshot{}, false
	}
	return b.tracker.Snapshot(now, r.staleAfter), true
}

// Len returns the number of registered blocks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blocks)
}

// Handles returns all handles in registration order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handle, len(r.blocks))
	for i := range r.blocks {
		out[i] = Handle(i)
	}
	return out
}

func (r *Registry) lookupLocked(h Handle) (*block, error) {
	if h < 0 || int(h) >= len(r.blocks) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return r.blocks[h], nil
}
