// internal/device/exclusive.go
package device

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Exclusive.Use after Close.
var ErrClosed = errors.New("device: connection closed")

// Exclusive owns one Conn shared by several workers.
// Every use goes through Use, which holds the connection lock for the whole callback.
// The lock is never held together with any registry lock.
type Exclusive struct {
	mu     sync.Mutex
	conn   Conn
	closed bool
}

// NewExclusive takes ownership of conn.
func NewExclusive(conn Conn) *Exclusive {
	return &Exclusive{conn: conn}
}

// Use runs fn with exclusive access to the connection.
// It waits for the lock unless ctx is done first.
func (e *Exclusive) Use(ctx context.Context, fn func(Conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(e.conn)
}

// Close closes the underlying connection exactly once.
func (e *Exclusive) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Close()
}
