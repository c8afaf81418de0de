// internal/device/modbus/client_test.go
package modbus

import (
	"context"
	"errors"
	"testing"

	"github.com/goburrow/modbus"

	"github.com/xmcchv/plc-test/internal/device"
)

func TestRegisterSpan(t *testing.T) {
	cases := []struct {
		start, length int
		addr, qty     uint16
		ok            bool
	}{
		{0, 100, 0, 50, true},
		{100, 100, 50, 50, true},
		{58, 2, 29, 1, true},
		{1, 2, 0, 0, false},
		{0, 3, 0, 0, false},
		{0, 0, 0, 0, false},
		{-2, 2, 0, 0, false},
		{0x1FFFE, 4, 0, 0, false},
	}

	for _, tc := range cases {
		addr, qty, err := registerSpan(tc.start, tc.length)
		if tc.ok != (err == nil) {
			t.Fatalf("start=%d length=%d: ok=%v err=%v", tc.start, tc.length, tc.ok, err)
		}
		if tc.ok && (addr != tc.addr || qty != tc.qty) {
			t.Fatalf("start=%d length=%d: got addr=%d qty=%d want addr=%d qty=%d",
				tc.start, tc.length, addr, qty, tc.addr, tc.qty)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
	if _, err := New(Config{Endpoint: "127.0.0.1:502", Area: 1}); err == nil {
		t.Fatalf("expected area error")
	}
	c, err := New(Config{Endpoint: "127.0.0.1:502"})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	if c.cfg.Area != AreaHolding {
		t.Fatalf("expected default holding area, got %d", c.cfg.Area)
	}
}

func TestReadRange_NotConnected(t *testing.T) {
	c, err := New(Config{Endpoint: "127.0.0.1:502"})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	err = c.ReadRange(context.Background(), 1, 0, make([]byte, 4))
	if !errors.Is(err, device.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestMapError_Exception(t *testing.T) {
	c := &Client{}
	c.connected.Store(true)

	err := c.mapErrorLocked(16, 4, &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 2})

	var re *device.ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if re.Code != 2 || re.Text != "illegal data address" {
		t.Fatalf("unexpected read error: %+v", re)
	}
	if !c.Connected() {
		t.Fatalf("exception must not drop the session")
	}
}

func TestMapError_TransportDropsSession(t *testing.T) {
	c := &Client{}
	c.connected.Store(true)

	err := c.mapErrorLocked(16, 4, errors.New("connection reset by peer"))
	if !errors.Is(err, device.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if c.Connected() {
		t.Fatalf("transport failure must drop the session")
	}
}
