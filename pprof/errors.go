// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof // import "go.opentelemetry.io/wallprof/pprof"

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTiming is matched by every TimingError.
	ErrTiming = errors.New("sample timestamp precedes previous sample")

	// ErrSerialization is matched by every SerializationError.
	ErrSerialization = errors.New("failed to serialize profile")
)

// TimingError is returned by Record when a trace is older than the previously recorded one.
// The accumulator is left unchanged.
type TimingError struct {
	Previous time.Time
	Current  time.Time
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("%v: %s is %v before %s", ErrTiming,
		e.Current.Format(time.RFC3339Nano), e.Previous.Sub(e.Current),
		e.Previous.Format(time.RFC3339Nano))
}

func (e *TimingError) Is(target error) bool {
	return target == ErrTiming
}

// SerializationError wraps a failure to encode or write the profile.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSerialization, e.Err)
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
