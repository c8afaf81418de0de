// cmd/plcreader/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/xmcchv/plc-test/internal/config"
	"github.com/xmcchv/plc-test/internal/logging"
	"github.com/xmcchv/plc-test/internal/reader"
	"github.com/xmcchv/plc-test/internal/status"
)

func main() {
	var (
		cfgPath       string
		printInterval time.Duration
		level         string
	)

	fs := pflag.NewFlagSet("plcreader", pflag.ExitOnError)
	fs.StringVarP(&cfgPath, "config", "c", "", "path to config file (.yaml or .toml)")
	fs.DurationVar(&printInterval, "print-interval", time.Second, "how often watch values are printed (0 disables)")
	fs.StringVar(&level, "log-level", "", "log level override")
	_ = fs.Parse(os.Args[1:])

	if cfgPath == "" && fs.NArg() > 0 {
		cfgPath = fs.Arg(0)
	}
	if cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: plcreader --config <config.yaml>")
		os.Exit(2)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}
	config.Normalize(cfg)
	if level != "" {
		cfg.Log.Level = level
	}

	log := logging.New(cfg.Log, "plcreader")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log, os.Stdout, printInterval)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("plcreader failed")
		os.Exit(1)
	}
}

// run owns the reader until ctx is done: every path out of it closes the
// reader's connections.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer, printInterval time.Duration) (err error) {
	// --------------------
	// Build + start reader
	// --------------------

	r, err := reader.Build(cfg.Reader, log)
	if err != nil {
		return fmt.Errorf("reader build: %w", err)
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()

	if err := r.Start(); err != nil {
		return fmt.Errorf("reader start: %w", err)
	}

	log.Info().
		Str("driver", cfg.Reader.Source.Driver).
		Str("endpoint", cfg.Reader.Source.Endpoint).
		Str("strategy", cfg.Reader.Poll.Strategy).
		Int("blocks", r.BlockCount()).
		Msg("reader started")

	if printInterval <= 0 {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return nil
	}

	t := time.NewTicker(printInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-t.C:
			for i := 0; i < r.BlockCount(); i++ {
				s, _ := r.BlockStatus(i)
				if s.Health == status.HealthOK {
					continue
				}
				rng, _ := r.Block(i)
				log.Warn().
					Str("block", rng.String()).
					Str("health", status.HealthName(s.Health)).
					Uint16("code", s.LastErrorCode).
					Uint16("seconds_in_error", s.SecondsInError).
					Msg(s.LastError)
			}
			for _, w := range cfg.Reader.Watch {
				fmt.Fprintln(out, formatWatch(r.Accessor, w))
			}
		}
	}
}
