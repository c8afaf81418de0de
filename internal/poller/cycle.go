// internal/poller/cycle.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/registry"
)

// read performs the device side of one poll cycle: reconnect if needed, then
// read the range into a fresh buffer. No registry lock is held here.
func read(ctx context.Context, conn device.Conn, rng registry.Range) ([]byte, error) {
	if !conn.Connected() {
		if err := conn.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, notConnected(err)
		}
	}

	buf := make([]byte, rng.Length)
	if err := conn.ReadRange(ctx, rng.DB, rng.Start, buf); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return buf, nil
}

// commit publishes a successful cycle or records a failed one.
// It returns the cycle error so callers can pick the next delay.
func (p *Poller) commit(h registry.Handle, rng registry.Range, buf []byte, err error, log zerolog.Logger) error {
	if err == nil {
		return p.reg.Publish(h, buf)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	_ = p.reg.Fail(h, err)

	if errors.Is(err, device.ErrNotConnected) {
		log.Warn().Err(err).Msg("device not connected")
		return err
	}

	log.Error().
		Uint16("code", device.ErrorCode(err)).
		Str("device_error", device.ErrorText(err)).
		Msgf("read block db=%d start=%d failed", rng.DB, rng.Start)
	return err
}

// delayAfter picks the wait following a cycle result.
func (p *Poller) delayAfter(err error) time.Duration {
	if errors.Is(err, device.ErrNotConnected) {
		return p.cfg.ReconnectDelay
	}
	return p.cfg.Interval
}

func notConnected(err error) error {
	if errors.Is(err, device.ErrNotConnected) {
		return err
	}
	return fmt.Errorf("%v: %w", err, device.ErrNotConnected)
}

func blockLogger(log zerolog.Logger, rng registry.Range) zerolog.Logger {
	return log.With().Int("db", rng.DB).Int("start", rng.Start).Int("size", rng.Length).Logger()
}
