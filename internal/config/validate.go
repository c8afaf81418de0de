// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// watchWidths is the byte width of each watch type.
var watchWidths = map[string]int{
	"bool":    1,
	"byte":    1,
	"int16":   2,
	"uint16":  2,
	"int32":   4,
	"uint32":  4,
	"float32": 4,
}

// WatchWidth returns the byte width of a watch type, 0 if unknown.
func WatchWidth(typ string) int {
	return watchWidths[strings.ToLower(typ)]
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	r := cfg.Reader

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	isModbus := false
	switch r.Source.Driver {
	case "", DriverModbus:
		isModbus = true
		if r.Source.Endpoint == "" {
			return errors.New("source: endpoint required for modbus driver")
		}
	case DriverSim:
	default:
		return fmt.Errorf("source: unknown driver %q", r.Source.Driver)
	}

	switch r.Source.Area {
	case "", AreaHolding, AreaInput:
	default:
		return fmt.Errorf("source: unknown area %q", r.Source.Area)
	}

	if r.Source.TimeoutMs < 0 || r.Source.IdleTimeoutMs < 0 {
		return errors.New("source: timeouts must be >= 0")
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	switch r.Poll.Strategy {
	case "", StrategyPerBlock, StrategyPool:
	default:
		return fmt.Errorf("poll: unknown strategy %q", r.Poll.Strategy)
	}

	if r.Poll.IntervalMs < 0 || r.Poll.ReconnectMs < 0 || r.Poll.IdleWaitMs < 0 || r.Poll.StaleAfterMs < 0 {
		return errors.New("poll: durations must be >= 0")
	}
	if r.Poll.Workers < 0 {
		return errors.New("poll: workers must be >= 0")
	}

	// ------------------------------------------------------------
	// BLOCK GEOMETRY
	// ------------------------------------------------------------

	if len(r.Blocks) == 0 {
		return errors.New("blocks: at least one block required")
	}

	type span struct {
		start int
		end   int // exclusive
		index int
	}

	// key = db
	spans := make(map[int][]span)

	for i, b := range r.Blocks {
		if b.Size <= 0 {
			return fmt.Errorf("block %d: size must be > 0", i)
		}
		if b.Start < 0 {
			return fmt.Errorf("block %d: start must be >= 0", i)
		}
		if b.DB < 0 {
			return fmt.Errorf("block %d: db must be >= 0", i)
		}

		if isModbus {
			if b.DB > 255 {
				return fmt.Errorf("block %d: db %d exceeds modbus unit id range", i, b.DB)
			}
			if b.Start%2 != 0 || b.Size%2 != 0 {
				return fmt.Errorf("block %d: modbus blocks must be register aligned (start=%d size=%d)", i, b.Start, b.Size)
			}
			if (b.Start+b.Size)/2 > 0x10000 {
				return fmt.Errorf("block %d: range exceeds modbus register space", i)
			}
		}

		start, end := b.Start, b.Start+b.Size

		for _, s := range spans[b.DB] {
			// overlap check (half-open)
			if start < s.end && s.start < end {
				return fmt.Errorf(
					"block overlap: db=%d range=%d-%d overlaps with block %d range=%d-%d",
					b.DB,
					start,
					end-1,
					s.index,
					s.start,
					s.end-1,
				)
			}
		}

		spans[b.DB] = append(spans[b.DB], span{start: start, end: end, index: i})
	}

	// ------------------------------------------------------------
	// WATCH
	// ------------------------------------------------------------

	for i, w := range r.Watch {
		width := WatchWidth(w.Type)
		if width == 0 {
			return fmt.Errorf("watch %d (%s): unknown type %q", i, w.Name, w.Type)
		}
		if strings.EqualFold(w.Type, "bool") && (w.Bit < 0 || w.Bit > 7) {
			return fmt.Errorf("watch %d (%s): bit must be in [0,7]", i, w.Name)
		}

		covered := false
		for _, s := range spans[w.DB] {
			if w.Offset >= s.start && w.Offset+width <= s.end {
				covered = true
				break
			}
		}
		if !covered {
			return fmt.Errorf("watch %d (%s): db=%d offset=%d not covered by any block", i, w.Name, w.DB, w.Offset)
		}
	}

	return nil
}
