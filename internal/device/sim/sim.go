// internal/device/sim/sim.go
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/xmcchv/plc-test/internal/device"
)

// Device is an in-memory stand-in for a remote device.
// Memory areas grow on write; unwritten bytes read back as zero.
type Device struct {
	mu        sync.Mutex
	mem       map[int][]byte
	reachable bool
	failCode  uint16
	failText  string
	latency   time.Duration

	reads    atomic.Uint64
	connects atomic.Uint64
}

// New returns a reachable device with empty memory.
func New() *Device {
	return &Device{
		mem:       make(map[int][]byte),
		reachable: true,
	}
}

// Write stores data into area db at offset.
func (d *Device) Write(db, offset int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	area := d.grow(db, offset+len(data))
	copy(area[offset:], data)
}

// Fill sets n bytes of area db starting at offset to v in one step.
func (d *Device) Fill(db, offset, n int, v byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	area := d.grow(db, offset+n)
	for i := offset; i < offset+n; i++ {
		area[i] = v
	}
}

// SetReachable toggles network reachability.
// An unreachable device drops open sessions on their next read.
func (d *Device) SetReachable(v bool) {
	d.mu.Lock()
	d.reachable = v
	d.mu.Unlock()
}

// FailReads makes every read fail with code and text. Code 0 clears the failure.
func (d *Device) FailReads(code uint16, text string) {
	d.mu.Lock()
	d.failCode = code
	d.failText = text
	d.mu.Unlock()
}

// SetLatency delays every read by lat.
func (d *Device) SetLatency(lat time.Duration) {
	d.mu.Lock()
	d.latency = lat
	d.mu.Unlock()
}

// Reads returns the number of successful reads served.
func (d *Device) Reads() uint64 { return d.reads.Load() }

// Connects returns the number of successful Connect calls.
func (d *Device) Connects() uint64 { return d.connects.Load() }

// Factory returns a device.Factory producing sessions to d.
func (d *Device) Factory() device.Factory {
	return func() (device.Conn, error) {
		return &Conn{dev: d}, nil
	}
}

func (d *Device) grow(db, size int) []byte {
	area := d.mem[db]
	if len(area) < size {
		next := make([]byte, size)
		copy(next, area)
		area = next
		d.mem[db] = area
	}
	return area
}

// Conn is one session to a simulated Device.
type Conn struct {
	dev       *Device
	connected atomic.Bool
	closed    atomic.Bool
}

func (c *Conn) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return device.ErrClosed
	}

	c.dev.mu.Lock()
	ok := c.dev.reachable
	c.dev.mu.Unlock()

	if !ok {
		return fmt.Errorf("sim: connect: %w", device.ErrNotConnected)
	}
	c.connected.Store(true)
	c.dev.connects.Inc()
	return nil
}

func (c *Conn) Connected() bool { return c.connected.Load() }

func (c *Conn) ReadRange(ctx context.Context, dbID, start int, buf []byte) error {
	if !c.connected.Load() {
		return fmt.Errorf("sim: read: %w", device.ErrNotConnected)
	}

	c.dev.mu.Lock()
	lat := c.dev.latency
	c.dev.mu.Unlock()

	if lat > 0 {
		t := time.NewTimer(lat)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	if !c.dev.reachable {
		c.connected.Store(false)
		return fmt.Errorf("sim: read: %w", device.ErrNotConnected)
	}
	if c.dev.failCode != 0 {
		return &device.ReadError{DB: dbID, Start: start, Code: c.dev.failCode, Text: c.dev.failText}
	}

	for i := range buf {
		buf[i] = 0
	}
	if area := c.dev.mem[dbID]; start < len(area) {
		copy(buf, area[start:])
	}
	c.dev.reads.Inc()
	return nil
}

func (c *Conn) Close() error {
	c.connected.Store(false)
	c.closed.Store(true)
	return nil
}
