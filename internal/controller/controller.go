// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/wallprof/internal/controller"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/wallprof/libpf"
	"go.opentelemetry.io/wallprof/pprof"
	"go.opentelemetry.io/wallprof/tracereader"
)

// outputFileMode replaces the owner-only mode os.CreateTemp uses.
const outputFileMode = 0o644

// Stats summarizes a run.
type Stats struct {
	// Recorded is the number of traces that made it into the profile.
	Recorded int
	// Dropped is the number of traces skipped because of timing errors.
	Dropped int
}

// Controller feeds recorded stack traces into a profile and writes it out.
type Controller struct {
	config  *Config
	profile *pprof.Synced
	stdout  io.Writer
	stats   Stats
}

// New creates a new controller.
func New(cfg *Config, opts ...pprof.Option) *Controller {
	return &Controller{
		config:  cfg,
		profile: pprof.NewSynced(pprof.New(opts...)),
		stdout:  os.Stdout,
	}
}

// Run records every trace read from in and writes the resulting profile to the configured
// output. Cancelling ctx stops recording, even while a read from in is blocked. What has been
// recorded up to that point is still written.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return c.consume(gctx, tracereader.New(in))
	})

	if c.config.SnapshotInterval > 0 {
		g.Go(func() error {
			c.snapshotLoop(gctx, done)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.writeProfile(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	if c.config.ValidateOutput {
		p, err := c.profile.Profile()
		if err != nil {
			return fmt.Errorf("profile failed validation: %w", err)
		}
		log.Infof("Validated profile with %d samples, %d locations and %d functions",
			len(p.Sample), len(p.Location), len(p.Function))
	}

	log.Infof("Recorded %d traces (%d dropped) in %v", c.stats.Recorded, c.stats.Dropped,
		time.Since(startTime))
	return nil
}

// Stats returns the counters of the last run.
func (c *Controller) Stats() Stats {
	return c.stats
}

// traceResult is one outcome of reading the input.
type traceResult struct {
	trace *libpf.StackTrace
	line  int
	err   error
}

// readTraces decodes traces from r in a separate goroutine so consumers are not stuck in a
// blocking read once ctx is cancelled. The channel is closed at the end of the input.
func readTraces(ctx context.Context, r *tracereader.Reader) <-chan traceResult {
	results := make(chan traceResult)
	go func() {
		defer close(results)
		for {
			trace, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case results <- traceResult{trace: trace, line: r.Line(), err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return results
}

func (c *Controller) consume(ctx context.Context, r *tracereader.Reader) error {
	if ctx.Err() != nil {
		log.Info("Stop processing ...")
		return nil
	}

	results := readTraces(ctx, r)
	for {
		var res traceResult
		var ok bool
		select {
		case <-ctx.Done():
			log.Info("Stop processing ...")
			return nil
		case res, ok = <-results:
			if !ok {
				return nil
			}
		}
		if res.err != nil {
			return res.err
		}

		err := c.profile.Record(res.trace)
		if err == nil {
			c.stats.Recorded++
			continue
		}
		if errors.Is(err, pprof.ErrTiming) && c.config.OnTimingError == TimingErrorDrop {
			c.stats.Dropped++
			log.Warnf("Dropping trace at line %d: %v", res.line, err)
			continue
		}
		return fmt.Errorf("failed to record trace at line %d: %w", res.line, err)
	}
}

// snapshotLoop writes the profile every SnapshotInterval until done is closed or ctx is
// cancelled.
func (c *Controller) snapshotLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.writeProfile(); err != nil {
				log.Errorf("Failed to write profile snapshot: %v", err)
				continue
			}
			log.Debugf("Wrote profile snapshot with %d samples", c.profile.NumSamples())
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeProfile writes the profile to the configured output. Files are replaced atomically so
// readers never see a partially written snapshot.
func (c *Controller) writeProfile() error {
	if c.config.Output == StdStream {
		_, err := c.profile.WriteTo(c.stdout)
		return err
	}

	dir, name := filepath.Split(c.config.Output)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmp.Name())
	}()

	if err = tmp.Chmod(outputFileMode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err = c.profile.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.config.Output)
}
