// internal/device/exclusive_test.go
package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type countingConn struct {
	mu     sync.Mutex
	active int
	max    int
	closes int
}

func (c *countingConn) Connect(ctx context.Context) error { return nil }
func (c *countingConn) Connected() bool                   { return true }

func (c *countingConn) ReadRange(ctx context.Context, dbID, start int, buf []byte) error {
	c.mu.Lock()
	c.active++
	if c.active > c.max {
		c.max = c.active
	}
	c.mu.Unlock()

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return nil
}

func (c *countingConn) Close() error {
	c.closes++
	return nil
}

func TestExclusive_SerializesUse(t *testing.T) {
	conn := &countingConn{}
	ex := NewExclusive(conn)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = ex.Use(context.Background(), func(c Conn) error {
					return c.ReadRange(context.Background(), 1, 0, nil)
				})
			}
		}()
	}
	wg.Wait()

	if conn.max != 1 {
		t.Fatalf("expected serialized access, max concurrent=%d", conn.max)
	}
}

func TestExclusive_CloseOnce(t *testing.T) {
	conn := &countingConn{}
	ex := NewExclusive(conn)

	if err := ex.Close(); err != nil {
		t.Fatalf("close err=%v", err)
	}
	if err := ex.Close(); err != nil {
		t.Fatalf("second close err=%v", err)
	}
	if conn.closes != 1 {
		t.Fatalf("expected 1 close, got %d", conn.closes)
	}

	err := ex.Use(context.Background(), func(Conn) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestExclusive_CancelledContext(t *testing.T) {
	ex := NewExclusive(&countingConn{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := ex.Use(ctx, func(Conn) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancelled use without callback, err=%v called=%v", err, called)
	}
}
