// internal/device/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/atomic"

	"github.com/xmcchv/plc-test/internal/device"
)

// Area selects the register table a block is read from.
type Area uint8

const (
	AreaHolding Area = 3 // FC 3
	AreaInput   Area = 4 // FC 4
)

// maxRegistersPerRead is the protocol limit for FC 3/4.
const maxRegistersPerRead = 125

// Config is minimal transport config.
type Config struct {
	Endpoint    string
	Timeout     time.Duration
	IdleTimeout time.Duration
	Area        Area
}

// Client implements device.Conn over Modbus TCP.
//
// Geometry: a memory area (db) is a Modbus unit id, byte offsets map onto
// big-endian registers, so start and length must both be even.
// The client serializes requests because it mutates SlaveId per read.
type Client struct {
	mu      sync.Mutex
	cfg     Config
	handler *modbus.TCPClientHandler
	client  modbus.Client

	connected atomic.Bool
}

// New validates cfg and returns an unconnected client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("device modbus: endpoint required")
	}
	if cfg.Area == 0 {
		cfg.Area = AreaHolding
	}
	if cfg.Area != AreaHolding && cfg.Area != AreaInput {
		return nil, fmt.Errorf("device modbus: unsupported area %d", cfg.Area)
	}
	return &Client{cfg: cfg}, nil
}

// NewFactory returns a device.Factory building one client per call.
func NewFactory(cfg Config) device.Factory {
	return func() (device.Conn, error) {
		return New(cfg)
	}
}

// Connect dials the endpoint. ONE attempt per call.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()

	h := modbus.NewTCPClientHandler(c.cfg.Endpoint)
	if c.cfg.Timeout > 0 {
		h.Timeout = c.cfg.Timeout
	}
	if c.cfg.IdleTimeout > 0 {
		h.IdleTimeout = c.cfg.IdleTimeout
	}

	if err := h.Connect(); err != nil {
		return fmt.Errorf("device modbus: connect %s: %v: %w", c.cfg.Endpoint, err, device.ErrNotConnected)
	}

	c.handler = h
	c.client = modbus.NewClient(h)
	c.connected.Store(true)
	return nil
}

func (c *Client) Connected() bool { return c.connected.Load() }

// ReadRange reads len(buf) bytes from unit dbID starting at byte offset start.
func (c *Client) ReadRange(ctx context.Context, dbID, start int, buf []byte) error {
	addr, qty, err := registerSpan(start, len(buf))
	if err != nil {
		return err
	}
	if dbID < 0 || dbID > 255 {
		return &device.ReadError{DB: dbID, Start: start, Code: codeBadUnit, Text: fmt.Sprintf("unit id %d out of range", dbID)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected.Load() || c.client == nil {
		return fmt.Errorf("device modbus: read: %w", device.ErrNotConnected)
	}

	c.handler.SlaveId = byte(dbID)

	off := 0
	for qty > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := qty
		if n > maxRegistersPerRead {
			n = maxRegistersPerRead
		}

		raw, err := c.read(addr, n)
		if err != nil {
			return c.mapErrorLocked(dbID, start, err)
		}
		if len(raw) != int(n)*2 {
			return &device.ReadError{
				DB:    dbID,
				Start: start,
				Code:  codeShortRead,
				Text:  fmt.Sprintf("short read: got %d bytes want %d", len(raw), int(n)*2),
			}
		}

		copy(buf[off:], raw)
		off += len(raw)
		addr += n
		qty -= n
	}

	return nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

func (c *Client) read(addr, qty uint16) ([]byte, error) {
	if c.cfg.Area == AreaInput {
		return c.client.ReadInputRegisters(addr, qty)
	}
	return c.client.ReadHoldingRegisters(addr, qty)
}

// mapErrorLocked turns a Modbus exception into a ReadError and any other
// failure into a dropped session.
func (c *Client) mapErrorLocked(dbID, start int, err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		code := uint16(me.ExceptionCode)
		return &device.ReadError{DB: dbID, Start: start, Code: code, Text: ExceptionText(code)}
	}

	_ = c.dropLocked()
	return fmt.Errorf("device modbus: read db=%d start=%d: %v: %w", dbID, start, err, device.ErrNotConnected)
}

func (c *Client) dropLocked() error {
	c.connected.Store(false)
	if c.handler == nil {
		return nil
	}
	err := c.handler.Close()
	c.handler = nil
	c.client = nil
	return err
}

// registerSpan converts a byte range into a register address and quantity.
func registerSpan(start, length int) (uint16, uint16, error) {
	if start < 0 || length <= 0 {
		return 0, 0, fmt.Errorf("device modbus: invalid byte range start=%d length=%d", start, length)
	}
	if start%2 != 0 || length%2 != 0 {
		return 0, 0, fmt.Errorf("device modbus: byte range start=%d length=%d not register aligned", start, length)
	}
	end := (start + length) / 2
	if end > 0x10000 {
		return 0, 0, fmt.Errorf("device modbus: byte range start=%d length=%d exceeds register space", start, length)
	}
	return uint16(start / 2), uint16(length / 2), nil
}
