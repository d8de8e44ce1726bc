// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// wallprof turns stack traces recorded by a sampling profiler into a wall-clock pprof
// profile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"go.opentelemetry.io/wallprof/internal/controller"
	"go.opentelemetry.io/wallprof/vc"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	cfg, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if cfg.Version {
		fmt.Printf("%s\n", vc.Version())
		return exitSuccess
	}

	if cfg.VerboseMode {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		cfg.Dump()
	}

	if err = cfg.Validate(); err != nil {
		return parseError("Invalid configuration: %v", err)
	}

	// Context to drive main goroutine. An interrupt stops reading and writes what has
	// been recorded so far.
	mainCtx, mainCancel := signal.NotifyContext(context.Background(),
		unix.SIGINT, unix.SIGTERM, unix.SIGABRT)
	defer mainCancel()
	// Restore the default signal handling after the first signal so a second one terminates
	// the process right away.
	context.AfterFunc(mainCtx, mainCancel)

	log.Infof("Starting wallprof %s", vc.String())

	in, err := openInput(cfg.Input)
	if err != nil {
		return failure("Failed to open input: %v", err)
	}
	defer in.Close()

	ctlr := controller.New(cfg)
	if err = ctlr.Run(mainCtx, in); err != nil {
		return failure("Failed to build profile: %v", err)
	}

	if cfg.Output != controller.StdStream {
		log.Infof("Wrote profile to %s", cfg.Output)
	}
	log.Info("Exiting ...")
	return exitSuccess
}

func openInput(name string) (io.ReadCloser, error) {
	if name == controller.StdStream {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func parseError(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
