// internal/device/device.go
package device

import (
	"context"
	"errors"
)

// Conn is the capability the poller needs from a remote device.
// Wire protocol, addressing and rack/slot style parameters belong to the adapter.
type Conn interface {
	// Connect establishes the session. ONE attempt per call.
	Connect(ctx context.Context) error

	// Connected reports whether the last known session state is usable.
	Connected() bool

	// ReadRange fills buf with len(buf) bytes of memory area dbID starting at start.
	// Device-reported failures are *ReadError; a dead session wraps ErrNotConnected.
	ReadRange(ctx context.Context, dbID, start int, buf []byte) error

	// Close tears the session down.
	Close() error
}

// Factory builds a new, unconnected Conn. One Conn per call.
type Factory func() (Conn, error)

// ErrNotConnected means the device could not be reached at read time.
var ErrNotConnected = errors.New("device: not connected")
