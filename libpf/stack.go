// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "go.opentelemetry.io/wallprof/libpf"

import (
	"fmt"
	"time"
)

// StackFrame represents one frame in a sampled stack trace.
type StackFrame struct {
	// Name is the function name of the frame.
	Name string `json:"name"`
	// RelativePath is the source file name relative to the project root.
	RelativePath string `json:"relative_path"`
	// AbsolutePath is the absolute source file name, if known. It is informational only
	// and does not take part in frame identity.
	AbsolutePath string `json:"absolute_path,omitempty"`
	// Lineno is the source line of the frame.
	Lineno SourceLineno `json:"lineno"`
}

// FrameKey is the identity of a StackFrame: two frames are the same call site iff
// their keys are equal.
type FrameKey struct {
	Name         string
	RelativePath string
	Lineno       SourceLineno
}

// Key returns the identity of the frame.
func (f *StackFrame) Key() FrameKey {
	return FrameKey{
		Name:         f.Name,
		RelativePath: f.RelativePath,
		Lineno:       f.Lineno,
	}
}

// Equal reports whether both frames describe the same call site.
func (f *StackFrame) Equal(other *StackFrame) bool {
	return f.Key() == other.Key()
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s - %s:%d", f.Name, f.RelativePath, f.Lineno)
}

// StackTrace is a single observation produced by the sampler on one sampling tick.
type StackTrace struct {
	// Trace holds the frames of the stack, innermost (leaf) frame first.
	Trace []StackFrame `json:"trace"`
	// PID is the sampled process, if known.
	PID *PID `json:"pid,omitempty"`
	// ThreadID is the sampled thread, if known.
	ThreadID *TID `json:"thread_id,omitempty"`
	// Time is the moment the sample was taken. When unset, consumers fall back to the
	// time the trace is processed.
	Time *time.Time `json:"time,omitempty"`
}
