// internal/poller/builder.go
package poller

import (
	"fmt"
	"time"

	cfg "github.com/xmcchv/plc-test/internal/config"
	"github.com/xmcchv/plc-test/internal/device"
	dmodbus "github.com/xmcchv/plc-test/internal/device/modbus"
	"github.com/xmcchv/plc-test/internal/device/sim"
)

// ConfigFrom converts normalized poll config into runtime config.
func ConfigFrom(p cfg.PollConfig) Config {
	return Config{
		Strategy:       Strategy(p.Strategy),
		Interval:       time.Duration(p.IntervalMs) * time.Millisecond,
		ReconnectDelay: time.Duration(p.ReconnectMs) * time.Millisecond,
		Workers:        p.Workers,
		IdleWait:       time.Duration(p.IdleWaitMs) * time.Millisecond,
	}
}

// BuildFactory returns the connection factory for a source.
// Factories do no I/O: connections are established by the workers.
// The sim driver shares one in-memory device across all connections.
func BuildFactory(src cfg.SourceConfig) (device.Factory, error) {
	switch src.Driver {
	case cfg.DriverModbus:
		area := dmodbus.AreaHolding
		if src.Area == cfg.AreaInput {
			area = dmodbus.AreaInput
		}
		return dmodbus.NewFactory(dmodbus.Config{
			Endpoint:    src.Endpoint,
			Timeout:     time.Duration(src.TimeoutMs) * time.Millisecond,
			IdleTimeout: time.Duration(src.IdleTimeoutMs) * time.Millisecond,
			Area:        area,
		}), nil
	case cfg.DriverSim:
		return sim.New().Factory(), nil
	default:
		return nil, fmt.Errorf("poller: unsupported driver %q", src.Driver)
	}
}
