// internal/device/sim/sim_test.go
package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xmcchv/plc-test/internal/device"
)

func dial(t *testing.T, d *Device) device.Conn {
	t.Helper()
	conn, err := d.Factory()()
	if err != nil {
		t.Fatalf("factory err=%v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect err=%v", err)
	}
	return conn
}

func TestReadRange_ReturnsWrittenBytes(t *testing.T) {
	d := New()
	d.Write(16, 2, []byte{0xAA, 0xBB})
	conn := dial(t, d)

	buf := make([]byte, 6)
	if err := conn.ReadRange(context.Background(), 16, 0, buf); err != nil {
		t.Fatalf("read err=%v", err)
	}
	if diff := cmp.Diff([]byte{0, 0, 0xAA, 0xBB, 0, 0}, buf); diff != "" {
		t.Fatalf("buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRange_Unreachable(t *testing.T) {
	d := New()
	conn := dial(t, d)

	d.SetReachable(false)
	err := conn.ReadRange(context.Background(), 1, 0, make([]byte, 2))
	if !errors.Is(err, device.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if conn.Connected() {
		t.Fatalf("session should drop after unreachable read")
	}
	if err := conn.Connect(context.Background()); !errors.Is(err, device.ErrNotConnected) {
		t.Fatalf("expected connect failure, got %v", err)
	}
}

func TestReadRange_DeviceError(t *testing.T) {
	d := New()
	conn := dial(t, d)

	d.FailReads(5, "address out of range")
	err := conn.ReadRange(context.Background(), 3, 10, make([]byte, 4))

	var re *device.ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if re.Code != 5 || re.DB != 3 || re.Start != 10 {
		t.Fatalf("unexpected read error: %+v", re)
	}
}
