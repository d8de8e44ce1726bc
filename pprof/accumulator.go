// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pprof accumulates sampled stack traces into a wall-clock profile in the pprof
// format.
package pprof // import "go.opentelemetry.io/wallprof/pprof"

import (
	"strings"
	"time"

	"go.opentelemetry.io/wallprof/internal/orderedset"
	"go.opentelemetry.io/wallprof/libpf"
)

const (
	// Sample type of every profile built by the Accumulator.
	sampleTypeWall = "wall"
	sampleUnitMs   = "ms"

	labelPID      = "pid"
	labelThreadID = "thread_id"

	initialTableSize = 64
)

// functionKey identifies a function by its decoded name and file.
type functionKey struct {
	name         string
	relativePath string
}

type function struct {
	id          uint64
	nameIdx     int64
	filenameIdx int64
}

type line struct {
	functionID uint64
	line       int64
}

// location holds exactly one line as the sampler does not report inlined frames.
type location struct {
	id   uint64
	line line
}

type label struct {
	keyIdx int64
	num    int64
}

type sample struct {
	locationIDs []uint64
	value       int64
	labels      []label
}

// Accumulator builds a deduplicated pprof profile out of a sequence of stack traces.
//
// All tables only ever grow: strings, functions and locations get their index or id on first
// sight and keep it. The Accumulator is not safe for concurrent use, see Synced.
type Accumulator struct {
	// strings is the string table. Indices 0, 1 and 2 are "", "wall" and "ms".
	strings *orderedset.OrderedSet[string]

	// functionSet maps (name, file) to the index in functions. The function id is index+1.
	functionSet *orderedset.OrderedSet[functionKey]
	functions   []function

	// locationSet maps a frame to the index in locations. The location id is index+1.
	locationSet *orderedset.OrderedSet[libpf.FrameKey]
	locations   []location

	samples []sample

	// prevTime is the timestamp of the last recorded sample, nil before the first one.
	prevTime *time.Time

	// now is used for traces that carry no timestamp.
	now func() time.Time
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithClock sets the time source used for traces that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) {
		a.now = now
	}
}

// New creates an empty Accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		strings:     orderedset.New[string](initialTableSize),
		functionSet: orderedset.New[functionKey](initialTableSize),
		locationSet: orderedset.New[libpf.FrameKey](initialTableSize),
		now:         time.Now,
	}

	// pprof requires the first string to be empty.
	a.strings.Add("")
	a.strings.Add(sampleTypeWall)
	a.strings.Add(sampleUnitMs)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record adds one sample for trace. Its value is the number of milliseconds elapsed since
// the previously recorded sample, 0 for the first one.
//
// A trace older than the previous one fails with a *TimingError and leaves the Accumulator
// untouched.
func (a *Accumulator) Record(trace *libpf.StackTrace) error {
	ts := a.timestamp(trace)

	var elapsedMs int64
	if a.prevTime != nil {
		if ts.Before(*a.prevTime) {
			return &TimingError{Previous: *a.prevTime, Current: ts}
		}
		elapsedMs = ts.Sub(*a.prevTime).Milliseconds()
	}
	a.prevTime = &ts

	a.addSample(trace, elapsedMs)
	return nil
}

func (a *Accumulator) timestamp(trace *libpf.StackTrace) time.Time {
	if trace.Time != nil {
		return *trace.Time
	}
	return a.now()
}

func (a *Accumulator) addSample(trace *libpf.StackTrace, value int64) {
	// Frame strings are interned before label keys.
	locationIDs := a.locationIDs(trace)
	labels := a.labels(trace)

	a.samples = append(a.samples, sample{
		locationIDs: locationIDs,
		value:       value,
		labels:      labels,
	})
}

func (a *Accumulator) locationIDs(trace *libpf.StackTrace) []uint64 {
	ids := make([]uint64, 0, len(trace.Trace))
	for i := range trace.Trace {
		ids = append(ids, a.resolveLocation(&trace.Trace[i]))
	}
	return ids
}

func (a *Accumulator) labels(trace *libpf.StackTrace) []label {
	var labels []label
	if trace.PID != nil {
		labels = append(labels, label{
			keyIdx: a.intern(labelPID),
			num:    int64(*trace.PID),
		})
	}
	if trace.ThreadID != nil {
		labels = append(labels, label{
			keyIdx: a.intern(labelThreadID),
			num:    int64(*trace.ThreadID),
		})
	}
	return labels
}

// resolveLocation returns the location id of frame, creating the location on first sight.
func (a *Accumulator) resolveLocation(frame *libpf.StackFrame) uint64 {
	idx, exists := a.locationSet.AddWithCheck(frame.Key())
	if exists {
		return a.locations[idx].id
	}

	// Ids must be non-zero, so they start at 1.
	loc := location{
		id: uint64(idx) + 1,
		line: line{
			functionID: a.resolveFunction(frame),
			line:       int64(frame.Lineno),
		},
	}
	a.locations = append(a.locations, loc)
	return loc.id
}

// resolveFunction returns the function id of the frame's (name, file) pair, creating the
// function on first sight.
func (a *Accumulator) resolveFunction(frame *libpf.StackFrame) uint64 {
	idx, exists := a.functionSet.AddWithCheck(functionKey{
		name:         frame.Name,
		relativePath: frame.RelativePath,
	})
	if exists {
		return a.functions[idx].id
	}

	fn := function{
		id:          uint64(idx) + 1,
		nameIdx:     a.intern(frame.Name),
		filenameIdx: a.intern(frame.RelativePath),
	}
	a.functions = append(a.functions, fn)
	return fn.id
}

// intern returns the string table index of text, appending it on first sight. Invalid UTF-8
// is replaced as the string table is a proto3 string field.
func (a *Accumulator) intern(text string) int64 {
	return int64(a.strings.Add(strings.ToValidUTF8(text, "\uFFFD")))
}

// NumSamples returns the number of recorded samples.
func (a *Accumulator) NumSamples() int {
	return len(a.samples)
}

// NumLocations returns the number of distinct locations.
func (a *Accumulator) NumLocations() int {
	return len(a.locations)
}

// NumFunctions returns the number of distinct functions.
func (a *Accumulator) NumFunctions() int {
	return len(a.functions)
}

// Strings returns a copy of the string table.
func (a *Accumulator) Strings() []string {
	return a.strings.ToSlice()
}
