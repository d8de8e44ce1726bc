// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "go.opentelemetry.io/wallprof/internal/controller"

import (
	"errors"
	"flag"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// TimingErrorDrop skips traces that are older than the previous one.
	TimingErrorDrop = "drop"
	// TimingErrorAbort stops processing on the first out of order trace.
	TimingErrorAbort = "abort"

	// StdStream selects stdin as input or stdout as output.
	StdStream = "-"
)

type Config struct {
	// Input is the file holding the recorded stack traces, StdStream for stdin.
	Input string
	// Output is the file the gzip compressed profile is written to, StdStream for stdout.
	Output string
	// SnapshotInterval is the interval at which the profile recorded so far is written to
	// Output. Zero disables snapshots.
	SnapshotInterval time.Duration
	// OnTimingError is TimingErrorDrop or TimingErrorAbort.
	OnTimingError string
	// ValidateOutput parses the final profile back and checks it for consistency.
	ValidateOutput bool
	VerboseMode    bool
	Version        bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.Input == "" {
		return errors.New("no input given")
	}
	if cfg.Output == "" {
		return errors.New("no output given")
	}

	switch cfg.OnTimingError {
	case TimingErrorDrop, TimingErrorAbort:
	default:
		return fmt.Errorf("invalid on-timing-error value %q: use %q or %q",
			cfg.OnTimingError, TimingErrorDrop, TimingErrorAbort)
	}

	if cfg.SnapshotInterval < 0 {
		return fmt.Errorf("invalid snapshot interval %v", cfg.SnapshotInterval)
	}
	if cfg.SnapshotInterval > 0 && cfg.Output == StdStream {
		return errors.New("snapshots can not be written to stdout")
	}
	return nil
}
