// cmd/plcreader/main_test.go
package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/xmcchv/plc-test/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func simConfig() *config.Config {
	c := &config.Config{
		Reader: config.ReaderConfig{
			Source: config.SourceConfig{Driver: config.DriverSim},
			Poll:   config.PollConfig{Strategy: config.StrategyPool, IntervalMs: 2},
			Blocks: []config.BlockConfig{{DB: 16, Start: 0, Size: 100}},
			Watch:  []config.WatchConfig{{Name: "speed", Type: "int16", DB: 16, Offset: 58}},
		},
	}
	config.Normalize(c)
	return c
}

func TestRun_PrintsWatchesAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if err := run(ctx, simConfig(), zerolog.Nop(), &out, 10*time.Millisecond); err != nil {
		t.Fatalf("run err=%v", err)
	}
	if !strings.Contains(out.String(), "speed=0") {
		t.Fatalf("expected watch output, got %q", out.String())
	}
}

func TestRun_BuildErrorLeavesNothingRunning(t *testing.T) {
	c := simConfig()
	c.Reader.Blocks = append(c.Reader.Blocks, config.BlockConfig{DB: 16, Start: 50, Size: 100})

	if err := run(context.Background(), c, zerolog.Nop(), &bytes.Buffer{}, 0); err == nil {
		t.Fatalf("expected build error for overlapping blocks")
	}
}
