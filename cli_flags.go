// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"

	"github.com/peterbourgon/ff/v3"

	"go.opentelemetry.io/wallprof/internal/controller"
)

const (
	// Default values for CLI flags
	defaultArgInput            = controller.StdStream
	defaultArgOutput           = "wallprof.pb.gz"
	defaultArgSnapshotInterval = 0
	defaultArgOnTimingError    = controller.TimingErrorDrop
)

// Help strings for command line arguments
var (
	configFileHelp = "Path to a plain config file with one \"flag value\" pair per line."
	inputHelp      = "File holding the recorded stack traces, one JSON object per line. " +
		"Use - to read from stdin."
	outputHelp = "File the gzip compressed pprof profile is written to. " +
		"Use - to write to stdout."
	snapshotIntervalHelp = "Write the profile recorded so far at this interval. " +
		"Zero only writes the profile once the input is exhausted."
	onTimingErrorHelp = "What to do with a trace that is older than the previous one: " +
		"drop skips it, abort stops with an error."
	validateHelp    = "Parse the written profile back and check it for consistency."
	verboseModeHelp = "Enable verbose logging and debugging capabilities."
	versionHelp     = "Show version."
)

func parseArgs(args []string) (*controller.Config, error) {
	var cfg controller.Config

	fs := flag.NewFlagSet("wallprof", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.String("config", "", configFileHelp)

	fs.StringVar(&cfg.Input, "input", defaultArgInput, inputHelp)

	fs.StringVar(&cfg.OnTimingError, "on-timing-error", defaultArgOnTimingError,
		onTimingErrorHelp)

	fs.StringVar(&cfg.Output, "output", defaultArgOutput, outputHelp)

	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", defaultArgSnapshotInterval,
		snapshotIntervalHelp)

	fs.BoolVar(&cfg.ValidateOutput, "validate", false, validateHelp)

	fs.BoolVar(&cfg.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&cfg.VerboseMode, "verbose", false, verboseModeHelp)
	fs.BoolVar(&cfg.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	cfg.Fs = fs

	return &cfg, ff.Parse(fs, args,
		ff.WithEnvVarPrefix("WALLPROF"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current version
		// does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}
